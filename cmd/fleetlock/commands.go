package main

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/fleetlock/internal/auth"
	"github.com/nerrad567/fleetlock/internal/command"
	"github.com/nerrad567/fleetlock/internal/discovery"
	"github.com/nerrad567/fleetlock/internal/infrastructure/config"
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "fleetlock",
		Short: "Lock, unlock and launch applications across a LAN fleet",
		Long: `fleetlock listens for device announcements, keeps every selected device
in the lock state an operator chose, and releases devices that go quiet.

Run without a subcommand to start the control plane.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), getConfigPath(cfgFile))
		},
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: $FLEETLOCK_CONFIG or "+defaultConfigPath+")")

	root.AddCommand(
		newSendCmd(),
		newAnnounceCmd(),
		newTokenCmd(&cfgFile),
		newVersionCmd(),
	)
	return root
}

// newSendCmd delivers one command directly, bypassing the dispatcher.
func newSendCmd() *cobra.Command {
	var (
		address        string
		code           string
		port           int
		connectTimeout time.Duration
		replyTimeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one command to a device and print the outcome",
		Example: `  fleetlock send --address 10.0.0.5 --code lock
  fleetlock send --address 10.0.0.5 --code launchPS`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := command.ParseCode(code)
			if err != nil {
				return err
			}
			channel := command.NewTCPChannel(command.ChannelConfig{
				Port:           port,
				ConnectTimeout: connectTimeout,
				ReplyTimeout:   replyTimeout,
			})
			outcome := channel.Send(cmd.Context(), address, c)
			if !outcome.OK() {
				if outcome.Err == nil {
					return fmt.Errorf("%s %s: %s", c.Name(), address, outcome.Kind)
				}
				return fmt.Errorf("%s %s: %s: %w", c.Name(), address, outcome.Kind, outcome.Err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s %q\n", c.Name(), address, outcome.Kind, outcome.Reply)
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "device address (host or host:port)")
	cmd.Flags().StringVar(&code, "code", "", "command name (lock, unlock, launch_a, launch_b, terminate) or wire token")
	cmd.Flags().IntVar(&port, "port", command.DefaultPort, "device command port")
	cmd.Flags().DurationVar(&connectTimeout, "connect-timeout", command.DefaultConnectTimeout, "dial timeout")
	cmd.Flags().DurationVar(&replyTimeout, "reply-timeout", command.DefaultReplyTimeout, "reply timeout")
	_ = cmd.MarkFlagRequired("address")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

// newAnnounceCmd sends one discovery datagram, as a device agent would.
func newAnnounceCmd() *cobra.Command {
	var (
		name    string
		address string
		target  string
	)

	cmd := &cobra.Command{
		Use:   "announce",
		Short: "Send a discovery announcement on behalf of a device",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := discovery.Announce(target, discovery.Announcement{Name: name, Address: address}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "announced %s,%s to %s\n", name, address, target)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "device name")
	cmd.Flags().StringVar(&address, "address", "", "device address to announce")
	cmd.Flags().StringVar(&target, "target", net.JoinHostPort("255.255.255.255", strconv.Itoa(discovery.DefaultPort)), "UDP destination")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}

// newTokenCmd mints an API token signed with the configured JWT secret.
func newTokenCmd(cfgFile *string) *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(getConfigPath(*cfgFile))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			token, err := auth.GenerateToken(subject, auth.Role(role), cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject (operator or dashboard name)")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleOperator), "role: viewer or operator")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenTTL, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fleetlock %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
