package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/gofiber/fiber/v2"

	"github.com/alexallen1/sing-box-suger/internal/adapters/builder"
	"github.com/alexallen1/sing-box-suger/internal/adapters/credentials"
	"github.com/alexallen1/sing-box-suger/internal/adapters/docker"
	sharehttp "github.com/alexallen1/sing-box-suger/internal/adapters/http"
	"github.com/alexallen1/sing-box-suger/internal/adapters/probe"
	"github.com/alexallen1/sing-box-suger/internal/adapters/singbox"
	"github.com/alexallen1/sing-box-suger/internal/config"
	"github.com/alexallen1/sing-box-suger/internal/core/ports"
	"github.com/alexallen1/sing-box-suger/internal/core/service"
)

const usage = `sbsuger — one-shot sing-box anytls deployer

Usage:
  sbsuger deploy          Deploy (or redeploy) the proxy container
  sbsuger link            Print the connection link from persisted state
  sbsuger status          Show the container's state
  sbsuger serve           Serve the link/subscription/QR over HTTP

Running with no subcommand deploys. Configuration is environment-driven
(SBS_WORK_DIR, SBS_CONTAINER_NAME, SBS_IMAGE, SBS_HOST_PORT,
SBS_LISTEN_PORT, SBS_CERT_CN, SBS_CERT_DAYS, ...); flags below override
the environment.

Run "sbsuger COMMAND --help" for command-specific flags.
`

func main() {
	if len(os.Args) < 2 {
		deployCmd(nil)
		return
	}

	switch arg := os.Args[1]; arg {
	case "-h", "-help", "--help", "help":
		fmt.Fprint(os.Stderr, usage)
		os.Exit(0)
	case "deploy":
		deployCmd(os.Args[2:])
	case "link":
		linkCmd(os.Args[2:])
	case "status":
		statusCmd(os.Args[2:])
	case "serve":
		serveCmd(os.Args[2:])
	default:
		if arg[0] == '-' {
			// Flags without subcommand → treat as "deploy"
			deployCmd(os.Args[1:])
		} else {
			fmt.Fprintf(os.Stderr, "sbsuger: unknown command %q\n\n", arg)
			fmt.Fprint(os.Stderr, usage)
			os.Exit(1)
		}
	}
}

// loadSettings parses the environment and applies common flag overrides.
func loadSettings(fs *flag.FlagSet, args []string) *config.Settings {
	workDir := fs.String("workdir", "", "work directory (default: SBS_WORK_DIR)")
	image := fs.String("image", "", "container image reference (default: SBS_IMAGE)")
	port := fs.Uint("port", 0, "host-exposed port (default: SBS_HOST_PORT)")
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(err)
	}
	if *workDir != "" {
		cfg.Deploy.WorkDir = *workDir
	}
	if *image != "" {
		cfg.Deploy.Image = *image
	}
	if *port != 0 {
		cfg.Deploy.HostPort = uint16(*port)
	}
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}
	return cfg
}

func newLogger() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		fatal(err)
	}
	return logger
}

// newDeployer wires the orchestrator. withEngine controls whether the
// Docker adapters are constructed; link rendering does not need them.
func newDeployer(cfg *config.Settings, logger *zap.Logger, withEngine bool) *service.Deployer {
	prober := probe.NewHTTPProber(cfg.Probe.PrimaryURL, cfg.Probe.FallbackURL, cfg.Probe.Timeout)
	creds := credentials.NewFileStore(cfg.Deploy)
	writer := singbox.NewFileWriter(cfg.Deploy.ConfigPath())

	var engine ports.ContainerEngine
	var imageBuilder ports.ImageBuilder
	if withEngine {
		dockerAdapter, err := docker.NewAdapter(logger)
		if err != nil {
			fatal(fmt.Errorf("%w: %v", service.ErrEngineUnavailable, err))
		}
		engine = dockerAdapter

		if cfg.Deploy.BuildRepo != "" {
			builderAdapter, err := builder.NewAdapter(logger)
			if err != nil {
				fatal(fmt.Errorf("%w: %v", service.ErrEngineUnavailable, err))
			}
			imageBuilder = builderAdapter
		}
	}

	return service.NewDeployer(cfg.Deploy, prober, creds, writer, engine, imageBuilder, logger)
}

func deployCmd(args []string) {
	fs := flag.NewFlagSet("sbsuger deploy", flag.ExitOnError)
	cfg := loadSettings(fs, args)

	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	svc := newDeployer(cfg, logger, true)

	dep, err := svc.Deploy(context.Background())
	if err != nil {
		fatal(err)
	}

	link := dep.Link(svc.Tag(dep.Host))
	fmt.Println()
	fmt.Println("Deployment complete.")
	fmt.Printf("  Host:      %s\n", dep.Host)
	fmt.Printf("  Port:      %d\n", dep.Port)
	fmt.Printf("  Password:  %s\n", dep.Secret)
	fmt.Printf("  Container: %s\n", dep.ContainerID)
	fmt.Println()
	fmt.Println(link)
	printQR(link)
}

func linkCmd(args []string) {
	fs := flag.NewFlagSet("sbsuger link", flag.ExitOnError)
	noQR := fs.Bool("no-qr", false, "print the link only, without the QR code")
	cfg := loadSettings(fs, args)

	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	svc := newDeployer(cfg, logger, false)

	dep, err := svc.Describe(context.Background())
	if err != nil {
		fatal(err)
	}

	link := dep.Link(svc.Tag(dep.Host))
	fmt.Println(link)
	if !*noQR {
		printQR(link)
	}
}

func statusCmd(args []string) {
	fs := flag.NewFlagSet("sbsuger status", flag.ExitOnError)
	cfg := loadSettings(fs, args)

	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	svc := newDeployer(cfg, logger, true)

	running, err := svc.Status(context.Background())
	if err != nil {
		fatal(err)
	}

	if len(running) == 0 {
		fmt.Printf("No running container named %q.\n", cfg.Deploy.ContainerName)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tIMAGE\tSTATE\tSTATUS")
	for _, c := range running {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Image, c.State, c.Status)
	}
	w.Flush()
}

func serveCmd(args []string) {
	fs := flag.NewFlagSet("sbsuger serve", flag.ExitOnError)
	addr := fs.String("addr", "", "listen address (default: SBS_SERVE_ADDR)")
	cfg := loadSettings(fs, args)
	if *addr != "" {
		cfg.Share.Addr = *addr
	}

	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	svc := newDeployer(cfg, logger, true)
	handler := sharehttp.NewShareHandler(svc)

	app := fiber.New()
	app.Get("/healthz", handler.Health)

	api := app.Group("/api")
	v1 := api.Group("/v1")
	v1.Get("/link", handler.Link)
	v1.Get("/subscription", handler.Subscription)
	v1.Get("/qr", handler.QR)

	logger.Info("share server starting", zap.String("addr", cfg.Share.Addr))
	if err := app.Listen(cfg.Share.Addr); err != nil {
		fatal(err)
	}
}

func printQR(link string) {
	qr, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		// The link is already printed; losing the QR is cosmetic.
		fmt.Fprintf(os.Stderr, "sbsuger: QR rendering failed: %v\n", err)
		return
	}
	fmt.Println(qr.ToSmallString(false))
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "sbsuger: %v\n", err)
	os.Exit(1)
}
