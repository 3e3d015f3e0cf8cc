package main

import "github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/cmd/movilis/cmd"

func main() {
	cmd.Execute()
}
