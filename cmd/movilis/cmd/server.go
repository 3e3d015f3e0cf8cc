package cmd

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/api"
	blobs3 "github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/blob/s3"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/credvault"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/internal/util"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/lifecycle"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/render"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/sign"
	bboltstorage "github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/storage/bbolt"
)

// masterPassphraseEnv names the environment variable holding the vault
// master passphrase. An environment variable keeps it out of process lists.
const masterPassphraseEnv = "MOVILIS_MASTER_PASSPHRASE"

var (
	port         int
	dataDir      string
	tlsCert      string
	tlsKey       string
	templatePath string
	fontPath     string
	identities   string
	s3Endpoint   string
	s3Bucket     string
	s3AccessKey  string
	s3SecretKey  string
	s3UseSSL     bool
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the certificate service server",
	RunE: func(cmd *cobra.Command, args []string) error {
		masterPassphrase := os.Getenv(masterPassphraseEnv)
		if masterPassphrase == "" {
			return fmt.Errorf("%s must be set", masterPassphraseEnv)
		}

		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		store, err := bboltstorage.NewStoreFromFile(filepath.Join(dataDir, "movilis.db"), nil)
		if err != nil {
			return fmt.Errorf("failed to open certificate storage: %w", err)
		}
		defer store.Close()

		vault, err := credvault.New(store, masterPassphrase)
		if err != nil {
			return fmt.Errorf("failed to open credential vault: %w", err)
		}

		resolver, err := loadResolver(identities)
		if err != nil {
			return err
		}

		renderer := render.New(
			render.WithTemplate(templatePath),
			render.WithFont(fontPath),
		)

		managerOpts := []lifecycle.Option{}
		if s3Endpoint != "" {
			artifacts, err := blobs3.New(blobs3.Config{
				Endpoint:  s3Endpoint,
				AccessKey: s3AccessKey,
				SecretKey: s3SecretKey,
				Bucket:    s3Bucket,
				UseSSL:    s3UseSSL,
			}, nil)
			if err != nil {
				return fmt.Errorf("failed to build artifact store: %w", err)
			}
			managerOpts = append(managerOpts, lifecycle.WithArtifactStore(artifacts))
		} else {
			fmt.Println("No artifact store configured; documents are rendered per request")
		}

		manager := lifecycle.NewManager(store, renderer, sign.New(vault), resolver, managerOpts...)

		a := api.New(manager, vault)

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Mount("/api/v1", a.Router())

		var tlsConfig *tls.Config
		if tlsCert != "" && tlsKey != "" {
			cert, err := tls.LoadX509KeyPair(tlsCert, tlsKey)
			if err != nil {
				return fmt.Errorf("failed to load TLS key pair: %w", err)
			}
			tlsConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}
		} else {
			cert, err := util.GenerateSelfSignedCert()
			if err != nil {
				return fmt.Errorf("failed to generate self-signed certificate: %w", err)
			}
			tlsConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}
			fmt.Println("Using self-signed runtime generated certificate for TLS")
		}

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			TLSConfig:         tlsConfig,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner()
		fmt.Printf("Starting server on port %d (data: %s)...\n", port, dataDir)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			fmt.Printf("\nReceived %s, shutting down...\n", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

// identityEntry is one record of the optional identities file.
type identityEntry struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Number      string `json:"number,omitempty"`
}

type fileResolver map[string]identityEntry

func (r fileResolver) Resolve(ctx context.Context, userID string) (lifecycle.Identity, error) {
	if e, ok := r[userID]; ok {
		return lifecycle.Identity{ID: userID, DisplayName: e.DisplayName, Email: e.Email, Number: e.Number}, nil
	}
	// Unknown users resolve to their own id; identity data belongs to the
	// host application.
	return lifecycle.Identity{ID: userID, DisplayName: userID}, nil
}

// loadResolver reads the identities file when one is configured. Without a
// file every user id resolves to itself.
func loadResolver(path string) (lifecycle.IdentityResolver, error) {
	if path == "" {
		return fileResolver{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read identities file: %w", err)
	}
	var entries map[string]identityEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse identities file: %w", err)
	}
	return fileResolver(entries), nil
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntVarP(&port, "port", "p", 8443, "Port to listen on")
	serverCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Directory for persistent data")
	serverCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "Path to TLS certificate file")
	serverCmd.Flags().StringVar(&tlsKey, "tls-key", "", "Path to TLS key file")
	serverCmd.Flags().StringVar(&templatePath, "template", "", "Path to the certificate template PDF")
	serverCmd.Flags().StringVar(&fontPath, "font", "", "Path to the decorative TTF for recipient names")
	serverCmd.Flags().StringVar(&identities, "identities", "", "Path to a JSON file mapping user ids to identities")
	serverCmd.Flags().StringVar(&s3Endpoint, "s3-endpoint", "", "S3-compatible endpoint for artifact storage")
	serverCmd.Flags().StringVar(&s3Bucket, "s3-bucket", "", "Artifact bucket name")
	serverCmd.Flags().StringVar(&s3AccessKey, "s3-access-key", "", "S3 access key")
	serverCmd.Flags().StringVar(&s3SecretKey, "s3-secret-key", "", "S3 secret key")
	serverCmd.Flags().BoolVar(&s3UseSSL, "s3-use-ssl", true, "Use TLS when talking to the S3 endpoint")
}
