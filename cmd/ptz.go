package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/smazurov/ptzrelay/internal/camera"
	"github.com/smazurov/ptzrelay/internal/config"
	"github.com/smazurov/ptzrelay/internal/control"
	"github.com/smazurov/ptzrelay/internal/logging"
	"github.com/spf13/cobra"
)

// cameraOptions are the camera settings shared by the ptz subcommands.
// They load from the same TOML keys and env vars as the server.
type cameraOptions struct {
	Config     string
	CameraHost string `toml:"camera.host" env:"CAMERA_IP"`
	Username   string `toml:"camera.username" env:"CAMERA_USERNAME"`
	Password   string `toml:"camera.password" env:"CAMERA_PASSWORD"`
	BasePath   string `toml:"camera.base_path" env:"ISAPI_BASE_PATH"`
	Timeout    string
}

// CreatePTZCmd creates the ptz command for driving the camera from a shell.
func CreatePTZCmd() *cobra.Command {
	opts := &cameraOptions{}

	cmd := &cobra.Command{
		Use:   "ptz",
		Short: "Send PTZ commands to the camera",
		Long:  `Sends one control command to the camera and prints the result as JSON. Useful for checking credentials and presets without the UI.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logging.Initialize(config.LoadLoggingConfig(opts.Config))
			return config.LoadConfig(opts, cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.Config, "config", "c", "config.toml", "Path to configuration file")
	flags.StringVar(&opts.CameraHost, "camera-host", "192.168.1.100", "Camera address")
	flags.StringVar(&opts.Username, "username", "admin", "Camera username")
	flags.StringVar(&opts.Password, "password", "password123", "Camera password")
	flags.StringVar(&opts.BasePath, "base-path", "/ISAPI", "ISAPI base path")
	flags.StringVar(&opts.Timeout, "timeout", "10s", "Request timeout")

	var speed int
	move := &cobra.Command{
		Use:   "move <direction>",
		Short: "Start continuous motion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPTZ(cmd, opts, func(ctx context.Context, svc *control.Service) (any, error) {
				var sp *int
				if cmd.Flags().Changed("speed") {
					sp = &speed
				}
				return svc.Move(ctx, args[0], sp)
			})
		},
	}
	move.Flags().IntVar(&speed, "speed", 50, "Speed 1-100")

	stop := &cobra.Command{
		Use:   "stop",
		Short: "Stop all motion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPTZ(cmd, opts, func(ctx context.Context, svc *control.Service) (any, error) {
				return svc.Stop(ctx)
			})
		},
	}

	gotoPreset := &cobra.Command{
		Use:   "goto [preset-id]",
		Short: "Recall a preset (default 34, back to origin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id *int
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid preset id %q", args[0])
				}
				id = &n
			}
			return runPTZ(cmd, opts, func(ctx context.Context, svc *control.Service) (any, error) {
				return svc.GotoPreset(ctx, id)
			})
		},
	}

	presets := &cobra.Command{
		Use:   "presets",
		Short: "List presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPTZ(cmd, opts, func(ctx context.Context, svc *control.Service) (any, error) {
				list, err := svc.ListPresets(ctx)
				if err != nil {
					return nil, err
				}
				return list.Presets, nil
			})
		},
	}

	cmd.AddCommand(move, stop, gotoPreset, presets)
	return cmd
}

func runPTZ(cmd *cobra.Command, opts *cameraOptions, fn func(context.Context, *control.Service) (any, error)) error {
	timeout, err := config.ParseDuration("timeout", opts.Timeout)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client := camera.NewClient(camera.Config{
		Host:     opts.CameraHost,
		Username: opts.Username,
		Password: opts.Password,
		BasePath: opts.BasePath,
	})
	svc := control.NewService(client, nil)

	result, err := fn(ctx, svc)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
