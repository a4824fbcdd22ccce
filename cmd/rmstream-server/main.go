// Command rmstream-server boots the screen-streaming server: it detects
// the device, opens the target process's memory, and starts the
// sampler, stylus, and HTTP/WS tasks that make up the running orchestrator.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/asivery/rmstream/config"
	"github.com/asivery/rmstream/orchestrator"
)

func main() {
	verbose := flag.Bool("verbose", false, "enable debug logging")
	configPath := flag.String("config", "", "path to config.json (defaults to the platform config dir)")
	listenAddr := flag.String("listen", "", "override the configured listen address")
	flag.Parse()

	path := *configPath
	if path == "" {
		var err error
		path, err = config.Path()
		if err != nil {
			log.Fatalf("rmstream-server: resolve config path: %v", err)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("rmstream-server: load config: %v", err)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *verbose {
		cfg.VerboseLogs = true
	}

	if !cfg.VerboseLogs {
		log.SetOutput(io.Discard)
		defer log.SetOutput(os.Stderr)
	}

	orch, err := orchestrator.Boot(cfg)
	if err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("rmstream-server: boot: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := orch.Run(ctx); err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("rmstream-server: %v", err)
	}
}
