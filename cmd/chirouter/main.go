// Command chirouter runs the router: it listens for a controller
// connection, configures zero or more routers from that connection (or,
// once --rtable is set, the routing table comes from a local file instead),
// and then forwards Ethernet frames for as long as the controller stays
// connected.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chirouter-go/chirouter/internal/controller"
	"github.com/chirouter-go/chirouter/internal/pcapw"
)

var (
	flagPort       int
	flagPcapPath   string
	flagRTablePath string
	flagVerbosity  string
)

var rootCmd = &cobra.Command{
	Use:   "chirouter",
	Short: "A user-space IPv4 router driven by an external controller",
	RunE:  run,
}

func init() {
	rootCmd.Flags().IntVar(&flagPort, "port", 23300, "port to listen on for the controller connection")
	rootCmd.Flags().StringVar(&flagPcapPath, "pcap", "", "write a pcapng capture of every frame to this path")
	rootCmd.Flags().StringVar(&flagRTablePath, "rtable", "", "load the routing table from this file instead of the controller's RTABLE_ENTRY messages")
	rootCmd.Flags().StringVar(&flagVerbosity, "verbosity", "info", "log verbosity: error, info, debug, or trace")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	level, err := logrus.ParseLevel(flagVerbosity)
	if err != nil {
		return fmt.Errorf("invalid --verbosity %q: %w", flagVerbosity, err)
	}
	logger := logrus.New()
	logger.SetLevel(level)
	log := logrus.NewEntry(logger)

	var pcapWriter *pcapw.Writer
	if flagPcapPath != "" {
		f, err := os.Create(flagPcapPath)
		if err != nil {
			return fmt.Errorf("opening capture file: %w", err)
		}
		defer f.Close()
		pcapWriter, err = pcapw.New(f)
		if err != nil {
			return fmt.Errorf("initializing capture file: %w", err)
		}
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", flagPort))
	if err != nil {
		return fmt.Errorf("binding port %d: %w", flagPort, err)
	}
	defer ln.Close()
	log.WithField("port", flagPort).Info("chirouter: listening for controller")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := controller.New(log, pcapWriter)
	if flagRTablePath != "" {
		contents, err := os.ReadFile(flagRTablePath)
		if err != nil {
			return fmt.Errorf("reading --rtable file: %w", err)
		}
		srv = srv.WithRTableFile(contents)
	}
	return srv.Serve(ctx, ln)
}
