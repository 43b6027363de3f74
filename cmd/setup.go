package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/desertthunder/mediadesk/internal/shared"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes a config.toml populated with the embedded defaults.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", configPath)
	r.writePlain("✓ Configuration written to %s\n", configPath)
	r.writePlain("Set api.base_url and either api.token or the client credentials before uploading.\n")
	return nil
}

// SetupDatabase initializes the upload journal and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using current settings", "error", err)
			config = r.config
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using current settings", "error", err)
		}
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return nil
}

// SetupToken extracts the bearer token and API root from a browser request and stores them in an env file.
//
// Existing entries in the env file are kept.
func (r *Runner) SetupToken(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")
	envFile := cmd.String("env-file")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}

	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	var req *shared.CurlRequest
	var err error

	if curlFile != "" {
		if req, err = shared.ParseCurlFile(curlFile); err != nil {
			return fmt.Errorf("failed to parse cURL file: %w", err)
		}
		r.logger.Info("parsed cURL from file", "file", curlFile)
	} else {
		if req, err = shared.ParseCurlCommand([]byte(curlCmd)); err != nil {
			return fmt.Errorf("failed to parse cURL command: %w", err)
		}
		r.logger.Info("parsed cURL command")
	}

	token, err := req.BearerToken()
	if err != nil {
		return err
	}

	env, err := godotenv.Read(envFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read %s: %w", envFile, err)
		}
		env = map[string]string{}
	}

	env["MEDIADESK_TOKEN"] = token
	if base, err := req.APIBase(); err == nil {
		env["MEDIADESK_API_URL"] = base
	} else {
		r.logger.Warn("no request URL in cURL command, keeping API URL", "error", err)
	}

	if err := godotenv.Write(env, envFile); err != nil {
		return fmt.Errorf("failed to write %s: %w", envFile, err)
	}
	if err := os.Chmod(envFile, 0600); err != nil {
		r.logger.Warn("failed to restrict env file permissions", "path", envFile, "error", err)
	}

	r.logger.Info("token saved", "path", envFile)

	r.writePlain("✓ Admin token saved to %s\n", envFile)
	if base, ok := env["MEDIADESK_API_URL"]; ok {
		r.writePlain("API: %s\n", base)
	}
	r.writePlainln("Next steps:")
	r.writePlain("1. Run 'mediadesk api get /users' to test authentication\n")
	r.writePlain("2. Run 'mediadesk upload run <files>' to start a batch\n")

	return nil
}
