// Command hivemail is the Hive Mail CLI: register agents, send and read
// mail, reserve files, and manage the background daemon.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	goruntime "runtime"

	"github.com/spf13/cobra"

	"github.com/hivemail/hivemail/internal/cli"
	"github.com/hivemail/hivemail/internal/paths"
)

var (
	// Version is set via -ldflags at build time.
	Version = "dev"
)

var (
	flagRepo  string
	flagJSON  bool
	flagQuiet bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hivemail",
		Short: "Coordination substrate for agents sharing a codebase",
		Long: `Hive Mail lets multiple coding agents working in the same
repository send each other mail, check a shared inbox, and reserve
files before editing them, so they don't collide.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}

	rootCmd.PersistentFlags().StringVar(&flagRepo, "repo", ".", "repository path")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "JSON output for scripting")
	rootCmd.PersistentFlags().BoolVar(&flagQuiet, "quiet", false, "suppress non-essential output")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "init" {
			return nil
		}
		if !cmd.Flags().Changed("repo") {
			if root, err := paths.FindHiveRoot(flagRepo); err == nil {
				flagRepo = root
			}
		}
		return nil
	}

	rootCmd.AddCommand(
		initCmd(),
		sendCmd(),
		inboxCmd(),
		readCmd(),
		ackCmd(),
		reserveCmd(),
		releaseCmd(),
		healthCmd(),
		overviewCmd(),
		daemonCmd(),
		mcpCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printJSON(v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

func initCmd() *cobra.Command {
	var agentName, program, model, taskDescription string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Register an agent in this project",
		Long: `Creates the .hive/ directory if needed and registers an agent
identity, persisted to .hive/identity.json so later commands in this
project don't need to repeat it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := cli.Init(cli.InitOptions{
				RepoPath:        flagRepo,
				AgentName:       agentName,
				Program:         program,
				Model:           model,
				TaskDescription: taskDescription,
			})
			if err != nil {
				return err
			}
			if flagJSON {
				printJSON(result)
			} else if !flagQuiet {
				fmt.Printf("✓ Registered as %s\n", result.Agent)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&agentName, "name", "", "agent name (generated if omitted)")
	cmd.Flags().StringVar(&program, "program", "", "the coding agent program running this session")
	cmd.Flags().StringVar(&model, "model", "", "the model backing this session")
	cmd.Flags().StringVar(&taskDescription, "task", "", "a short description of the current task")

	return cmd
}

func sendCmd() *cobra.Command {
	var to []string
	var subject, thread, importance string
	var ackRequired bool

	cmd := &cobra.Command{
		Use:   "send BODY",
		Short: "Send a message to one or more agents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(to) == 0 {
				return fmt.Errorf("--to is required")
			}
			result, err := cli.Send(cli.SendOptions{
				RepoPath:    flagRepo,
				To:          to,
				Subject:     subject,
				Body:        args[0],
				ThreadID:    thread,
				Importance:  importance,
				AckRequired: ackRequired,
			})
			if err != nil {
				return err
			}
			if flagJSON {
				printJSON(result)
			} else if !flagQuiet {
				fmt.Printf("✓ Message sent (id %d)\n", result.MessageID)
				if result.ThreadID != "" {
					fmt.Printf("  Thread: %s\n", result.ThreadID)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&to, "to", nil, "recipient agent name (repeatable)")
	cmd.Flags().StringVar(&subject, "subject", "", "message subject")
	cmd.Flags().StringVar(&thread, "thread", "", "thread id to reply within")
	cmd.Flags().StringVar(&importance, "importance", "normal", "importance (low|normal|high|urgent)")
	cmd.Flags().BoolVar(&ackRequired, "ack-required", false, "require recipients to acknowledge")

	return cmd
}

func inboxCmd() *cobra.Command {
	var limit int
	var urgentOnly, unreadOnly, includeBodies bool

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "List messages addressed to this agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := cli.Inbox(cli.InboxOptions{
				RepoPath:      flagRepo,
				Limit:         limit,
				UrgentOnly:    urgentOnly,
				UnreadOnly:    unreadOnly,
				IncludeBodies: includeBodies,
			})
			if err != nil {
				return err
			}
			if flagJSON {
				printJSON(result)
				return nil
			}
			fmt.Print(cli.FormatInboxTable(result))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "max messages to return (hard-capped)")
	cmd.Flags().BoolVar(&urgentOnly, "urgent-only", false, "only urgent messages")
	cmd.Flags().BoolVar(&unreadOnly, "unread-only", false, "only unread messages")
	cmd.Flags().BoolVar(&includeBodies, "include-bodies", false, "include message bodies")

	return cmd
}

func readCmd() *cobra.Command {
	var markAsRead bool

	cmd := &cobra.Command{
		Use:   "read MESSAGE_ID",
		Short: "Read a single message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMessageID(args[0])
			if err != nil {
				return err
			}
			msg, err := cli.ReadMessage(flagRepo, id, markAsRead)
			if err != nil {
				return err
			}
			if flagJSON {
				printJSON(msg)
				return nil
			}
			if msg == nil {
				fmt.Println("No such message (or you are not a recipient).")
				return nil
			}
			fmt.Printf("From:    %s\n", msg.FromAgent)
			fmt.Printf("Subject: %s\n", msg.Subject)
			fmt.Printf("\n%s\n", msg.Body)
			return nil
		},
	}

	cmd.Flags().BoolVar(&markAsRead, "mark-as-read", true, "mark the message as read")

	return cmd
}

func ackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ack MESSAGE_ID",
		Short: "Acknowledge a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMessageID(args[0])
			if err != nil {
				return err
			}
			result, err := cli.AcknowledgeMessage(flagRepo, id)
			if err != nil {
				return err
			}
			if flagJSON {
				printJSON(result)
			} else if !flagQuiet {
				fmt.Println("✓ Acknowledged")
			}
			return nil
		},
	}
}

func reserveCmd() *cobra.Command {
	var reason string
	var exclusive bool
	var exclusiveSet bool
	var ttlSeconds int64
	var force bool

	cmd := &cobra.Command{
		Use:   "reserve PATH...",
		Short: "Reserve one or more file paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.ReserveOptions{
				RepoPath:   flagRepo,
				Paths:      args,
				Reason:     reason,
				TTLSeconds: ttlSeconds,
				Force:      force,
			}
			if exclusiveSet {
				opts.Exclusive = &exclusive
			}
			result, err := cli.ReserveFiles(opts)
			if err != nil {
				return err
			}
			if flagJSON {
				printJSON(result)
				return nil
			}
			fmt.Printf("✓ Reserved: %v\n", result.Granted)
			for _, c := range result.Conflicts {
				fmt.Printf("  ⚠ %s also held by %s (%s)\n", c.Path, c.Holder, c.Pattern)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "reason for the reservation")
	cmd.Flags().BoolVar(&exclusive, "exclusive", true, "exclusive hold (default true)")
	cmd.Flags().Int64Var(&ttlSeconds, "ttl", 0, "time-to-live in seconds (default 3600)")
	cmd.Flags().BoolVar(&force, "force", false, "reserved for future pre-emption support")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		exclusiveSet = cmd.Flags().Changed("exclusive")
	}

	return cmd
}

func releaseCmd() *cobra.Command {
	var reservationIDs []int64

	cmd := &cobra.Command{
		Use:   "release [PATH...]",
		Short: "Release file reservations by path or ID",
		Long: `Release reservations you hold. With no arguments, releases every
reservation you currently hold.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := cli.ReleaseFiles(cli.ReleaseOptions{
				RepoPath:       flagRepo,
				Paths:          args,
				ReservationIDs: reservationIDs,
			})
			if err != nil {
				return err
			}
			if flagJSON {
				printJSON(result)
			} else if !flagQuiet {
				fmt.Printf("✓ Released %d reservation(s)\n", result.ReleasedCount)
			}
			return nil
		},
	}

	cmd.Flags().Int64SliceVar(&reservationIDs, "id", nil, "reservation id to release (repeatable)")

	return cmd
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the data store backing this project",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := cli.CheckHealth(flagRepo)
			if err != nil {
				return err
			}
			if flagJSON {
				printJSON(result)
				return nil
			}
			if !result.Healthy {
				fmt.Println("Store: unhealthy")
				os.Exit(1)
			}
			fmt.Println("Store: healthy")
			if result.Stats != nil {
				fmt.Printf("  events: %d  agents: %d  messages: %d  reservations: %d\n",
					result.Stats.Events, result.Stats.Agents, result.Stats.Messages, result.Stats.Reservations)
			}
			return nil
		},
	}
}

func overviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Show store health and unread mail in one view",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := cli.Overview(flagRepo)
			if err != nil {
				return err
			}
			if flagJSON {
				printJSON(result)
				return nil
			}
			fmt.Print(cli.FormatOverview(result))
			return nil
		},
	}
}

func daemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the hivemaild background process",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "start",
			Short: "Start the daemon in the background",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := cli.DaemonStart(flagRepo); err != nil {
					return err
				}
				if !flagQuiet {
					fmt.Println("✓ Daemon started")
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "stop",
			Short: "Stop the daemon",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := cli.DaemonStop(flagRepo); err != nil {
					return err
				}
				if !flagQuiet {
					fmt.Println("✓ Daemon stopped")
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show daemon status",
			RunE: func(cmd *cobra.Command, args []string) error {
				result, err := cli.DaemonStatus(flagRepo)
				if err != nil {
					return err
				}
				if flagJSON {
					printJSON(result)
				} else {
					fmt.Print(cli.FormatDaemonStatus(result))
				}
				if !result.Running {
					os.Exit(1)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "restart",
			Short: "Restart the daemon",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := cli.DaemonRestart(flagRepo); err != nil {
					return err
				}
				if !flagQuiet {
					fmt.Println("✓ Daemon restarted")
				}
				return nil
			},
		},
	)

	return cmd
}

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP server integration",
	}
	cmd.AddCommand(mcpServeCmd())
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show hivemail version",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagJSON {
				printJSON(map[string]string{"version": Version, "go_version": goruntime.Version()})
				return nil
			}
			fmt.Printf("hivemail v%s (%s)\n", Version, goruntime.Version())
			return nil
		},
	}
}

func parseMessageID(s string) (int64, error) {
	var id int64
	if _, err := fmt.Sscanf(s, "%d", &id); err != nil {
		return 0, fmt.Errorf("invalid message id %q", s)
	}
	return id, nil
}
