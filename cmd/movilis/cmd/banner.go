package cmd

import (
	"fmt"
)

const banner = `
  __  __            _ _ _
 |  \/  | _____   _(_) (_)___
 | |\/| |/ _ \ \ / / | | / __|
 | |  | | (_) \ V /| | | \__ \
 |_|  |_|\___/ \_/ |_|_|_|___/

`

func printBanner() {
	fmt.Printf("\x1b[34m%s\x1b[0m", banner)
	fmt.Printf("\x1b[32m  Certificate Service - Version %s\x1b[0m\n\n", Version)
}
