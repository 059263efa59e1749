// Command swapd is the swap-core server binary: it loads config, opens
// the rocks engine, wires internal/server.Server, and serves both the
// RESP client listener and the swapctl admin gRPC listener until signaled
// to stop.
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/adminrpc"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/config"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/logging"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/rdb"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/rocks"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/server"
)

var (
	configPath string
	rocksDir   string
	addr       string
	adminAddr  string
	dbnum      int
	mapSizeMiB int64
	loadRDBDir string
)

var log = logging.New("cmd", "swapd")

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a config file (swap-* directives, loaded at startup)")
	rootCmd.Flags().StringVar(&rocksDir, "rocks-dir", "./rocks", "directory holding the rocks engine's epoch subdirectories")
	rootCmd.Flags().StringVar(&addr, "addr", "127.0.0.1:6399", "RESP client listen address")
	rootCmd.Flags().StringVar(&adminAddr, "admin-addr", "127.0.0.1:6400", "swapctl admin gRPC listen address")
	rootCmd.Flags().IntVar(&dbnum, "dbnum", 16, "number of logical databases")
	rootCmd.Flags().Int64Var(&mapSizeMiB, "rocks-map-size-mib", 1024, "rocks engine LMDB map size, in MiB")
	rootCmd.Flags().StringVar(&loadRDBDir, "load-rdb-dir", "", "directory holding <dbid>.rdb files to replay at startup, one per database")
}

var rootCmd = &cobra.Command{
	Use:   "swapd",
	Short: "swap-core server",
	RunE:  run,
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.New()
	if configPath != "" {
		if err := cfg.Load(configPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	engine, err := rocks.New(rocksDir).MapSize(mapSizeMiB << 20).Open()
	if err != nil {
		return fmt.Errorf("open rocks engine at %s: %w", rocksDir, err)
	}
	defer engine.Close()

	srv := server.New(cfg, engine, dbnum)

	if loadRDBDir != "" {
		if err := loadRDBFiles(srv, loadRDBDir, dbnum); err != nil {
			return fmt.Errorf("load rdb: %w", err)
		}
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	defer ln.Close()

	adminLn, err := net.Listen("tcp", adminAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", adminAddr, err)
	}
	defer adminLn.Close()

	grpcServer := grpc.NewServer()
	adminrpc.RegisterAdminServiceServer(grpcServer, server.NewAdminService(srv))

	go func() {
		log.Info("resp listener up", "addr", addr)
		if err := srv.Serve(ln); err != nil {
			log.Error("resp listener stopped", "error", err)
		}
	}()
	go func() {
		log.Info("admin listener up", "addr", adminAddr)
		if err := grpcServer.Serve(adminLn); err != nil {
			log.Error("admin listener stopped", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		grpcServer.GracefulStop()
		srv.Stop()
	}()

	srv.Run()
	return nil
}

// loadRDBFiles replays dir/<dbid>.rdb for every database that has one,
// skipping databases with no file rather than treating a partial dump as
// an error — an operator restoring a handful of databases shouldn't need
// placeholder files for the rest.
func loadRDBFiles(srv *server.Server, dir string, dbnum int) error {
	for dbid := 0; dbid < dbnum; dbid++ {
		path := filepath.Join(dir, fmt.Sprintf("%d.rdb", dbid))
		f, err := os.Open(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return err
		}
		stats, loadErr := srv.LoadRDB(dbid, f, rdb.Options{})
		f.Close()
		if loadErr != nil {
			return fmt.Errorf("db %d: %w", dbid, loadErr)
		}
		log.Info("loaded rdb", "db", dbid, "keys", stats.Keys, "rows", stats.Rows)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}
