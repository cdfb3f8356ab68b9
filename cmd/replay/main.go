// Command replay reads a satgen archive and drives one or more external
// emulation hosts through its recorded diffs, spec.md §6.
//
// Usage: replay <archive-path> <host-addr>...
//
// Exit code 0 on clean end-of-duration, 1 on argument errors, 0 on SIGTERM
// after graceful shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/OpenFogStack/celestial/internal/archive"
	"github.com/OpenFogStack/celestial/internal/driver"
	"github.com/OpenFogStack/celestial/internal/utils"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: replay <archive-path> <host-addr>...")
		flag.PrintDefaults()
	}
	insecure := flag.Bool("insecure", false, "skip TLS certificate verification when dialing hosts")
	flag.Parse()

	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(1)
	}

	logger := utils.NewLogger()
	archivePath := flag.Arg(0)
	hostAddrs := flag.Args()[1:]

	f, err := os.Open(archivePath)
	if err != nil {
		logger.Error("failed to open archive %s: %v", archivePath, err)
		os.Exit(1)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		logger.Error("failed to stat archive %s: %v", archivePath, err)
		os.Exit(1)
	}

	reader, err := archive.OpenReader(f, info.Size())
	if err != nil {
		logger.Error("failed to open archive %s: %v", archivePath, err)
		os.Exit(1)
	}

	records, err := reader.ReadInit()
	if err != nil {
		logger.Error("failed to read init listing: %v", err)
		os.Exit(1)
	}
	machines := make([]driver.Machine, len(records))
	for i, rec := range records {
		machines[i] = driver.Machine{ID: rec.ID, Name: rec.Name}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	clients := make([]driver.HostClient, 0, len(hostAddrs))
	for _, addr := range hostAddrs {
		c, err := driver.DialWebSocketClient(ctx, addr, *insecure)
		if err != nil {
			logger.Error("failed to dial host %s: %v", addr, err)
			os.Exit(1)
		}
		if err := c.RegisterHost(ctx); err != nil {
			logger.Error("failed to register with host %s: %v", addr, err)
			os.Exit(1)
		}
		if err := c.Init(ctx, machines); err != nil {
			logger.Error("failed to initialise host %s: %v", addr, err)
			os.Exit(1)
		}
		clients = append(clients, c)
	}

	logger.Info("replaying %s to %d host(s)", archivePath, len(clients))

	ticks := reader.Ticks()
	for _, tick := range ticks {
		if ctx.Err() != nil {
			break
		}

		machineDiffs, linkDiffs, err := reader.ReadTick(tick)
		if err != nil {
			logger.Error("failed to read tick %d: %v", tick, err)
			stopAll(ctx, clients, logger)
			os.Exit(1)
		}

		for _, c := range clients {
			if err := c.Update(ctx, tick, machineDiffs, linkDiffs); err != nil {
				logger.Warn("update failed for one host at tick %d: %v", tick, err)
			}
		}
	}

	stopAll(ctx, clients, logger)
	logger.Info("replay complete")
}

func stopAll(ctx context.Context, clients []driver.HostClient, logger *utils.Logger) {
	for _, c := range clients {
		if err := c.Stop(ctx); err != nil {
			logger.Warn("graceful stop failed for one host: %v", err)
		}
	}
}
