// Command swapctl is the admin CLI for a running swapd: compact,
// checkpoint, stat, and config get/set/rewrite, all dialed over swapd's
// admin gRPC listener (internal/adminrpc).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/adminrpc"
)

var adminAddr string

func init() {
	rootCmd.PersistentFlags().StringVar(&adminAddr, "addr", "127.0.0.1:6400", "swapd admin gRPC address")
	rootCmd.AddCommand(compactCmd, checkpointCmd, statCmd, configCmd)
	configCmd.AddCommand(configGetCmd, configSetCmd, configRewriteCmd)
}

var rootCmd = &cobra.Command{
	Use:   "swapctl",
	Short: "admin CLI for a running swapd",
}

func dial() (adminrpc.AdminServiceClient, func(), error) {
	conn, err := grpc.Dial(adminAddr, grpc.WithInsecure(), grpc.WithBlock(), grpc.WithTimeout(5*time.Second))
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", adminAddr, err)
	}
	return adminrpc.NewAdminServiceClient(conn), func() { conn.Close() }, nil
}

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "run a manual compaction pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closeFn, err := dial()
		if err != nil {
			return err
		}
		defer closeFn()
		_, err = c.Compact(context.Background(), &emptypb.Empty{})
		return err
	},
}

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint <dir>",
	Short: "snapshot the engine into <dir>",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closeFn, err := dial()
		if err != nil {
			return err
		}
		defer closeFn()
		out, err := c.Checkpoint(context.Background(), wrapperspb.String(args[0]))
		if err != nil {
			return err
		}
		fmt.Println(out.GetValue())
		return nil
	},
}

var statCmd = &cobra.Command{
	Use:   "stat",
	Short: "dump per-column-family engine stats",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closeFn, err := dial()
		if err != nil {
			return err
		}
		defer closeFn()
		out, err := c.Stats(context.Background(), &emptypb.Empty{})
		if err != nil {
			return err
		}
		fmt.Print(out.GetValue())
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "inspect or change swapd's live configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get <pattern>",
	Short: "list knobs matching a glob pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closeFn, err := dial()
		if err != nil {
			return err
		}
		defer closeFn()
		out, err := c.ConfigGet(context.Background(), wrapperspb.String(args[0]))
		if err != nil {
			return err
		}
		fmt.Print(out.GetValue())
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "set a mutable knob",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closeFn, err := dial()
		if err != nil {
			return err
		}
		defer closeFn()
		_, err = c.ConfigSet(context.Background(), wrapperspb.String(args[0]+" "+args[1]))
		return err
	},
}

var configRewriteCmd = &cobra.Command{
	Use:   "rewrite",
	Short: "persist the live config back to its source file",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closeFn, err := dial()
		if err != nil {
			return err
		}
		defer closeFn()
		_, err = c.ConfigRewrite(context.Background(), &emptypb.Empty{})
		return err
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
