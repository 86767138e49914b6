package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/bitdabbler/gelf"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

func main() {
	app := buildApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "gelfsend: %v\n", err)
		os.Exit(1)
	}
}

func buildApp() *cli.App {
	const (
		configFlagName          = "config"
		serverFlagName          = "server"
		hostFlagName            = "host"
		facilityFlagName        = "facility"
		levelFlagName           = "level"
		bufferSizeFlagName      = "buffer-size"
		compressionFlagName     = "compression"
		compressionTypeFlagName = "compression-type"
		fieldFlagName           = "field"
		verboseFlagName         = "verbose"
	)

	app := cli.NewApp()
	app.Name = "gelfsend"
	app.Usage = "send GELF messages to Graylog servers over UDP"
	app.ArgsUsage = "[message]"
	app.Description = "Sends the message given as arguments, or streams " +
		"stdin line by line when no message is given. Flags override values " +
		"from the optional YAML config file."

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  configFlagName + ", c",
			Usage: "path to a YAML config file",
		},
		cli.StringSliceFlag{
			Name:  serverFlagName + ", s",
			Usage: "GELF server as host[:port]; repeatable, messages fan out round-robin",
		},
		cli.StringFlag{
			Name:  hostFlagName,
			Usage: "originating host name stamped into every record (default: os hostname)",
		},
		cli.StringFlag{
			Name:  facilityFlagName,
			Usage: "facility stamped into every record",
		},
		cli.StringFlag{
			Name:  levelFlagName + ", l",
			Usage: "severity level name (emergency..debug)",
		},
		cli.IntFlag{
			Name:  bufferSizeFlagName,
			Usage: "maximum UDP datagram body size in bytes",
		},
		cli.StringFlag{
			Name:  compressionFlagName,
			Usage: "compression mode: optimal, always, or never",
		},
		cli.StringFlag{
			Name:  compressionTypeFlagName,
			Usage: "compression algorithm: zlib, gzip, or none",
		},
		cli.StringSliceFlag{
			Name:  fieldFlagName + ", f",
			Usage: "additional field as key=value; repeatable",
		},
		cli.BoolFlag{
			Name:  verboseFlagName,
			Usage: "write debug logs to stderr",
		},
	}

	app.Action = func(c *cli.Context) error {
		cfg := DefaultConfig()
		if path := c.String(configFlagName); path != "" {
			var err error
			cfg, err = LoadConfig(path)
			if err != nil {
				return err
			}
		}

		// flags override config file values
		if servers := c.StringSlice(serverFlagName); len(servers) > 0 {
			cfg.Servers = servers
		}
		if host := c.String(hostFlagName); host != "" {
			cfg.Host = host
		}
		if facility := c.String(facilityFlagName); facility != "" {
			cfg.Facility = facility
		}
		if level := c.String(levelFlagName); level != "" {
			cfg.Level = level
		}
		if size := c.Int(bufferSizeFlagName); size > 0 {
			cfg.BufferSize = size
		}
		if mode := c.String(compressionFlagName); mode != "" {
			cfg.Compression = mode
		}
		if typ := c.String(compressionTypeFlagName); typ != "" {
			cfg.CompressionType = typ
		}
		if c.Bool(verboseFlagName) {
			cfg.Verbose = true
		}

		fields := cfg.MessageFields()
		for _, kv := range c.StringSlice(fieldFlagName) {
			k, v, ok := strings.Cut(kv, "=")
			if !ok || k == "" {
				return errors.Errorf("invalid field %q, expected key=value", kv)
			}
			if fields == nil {
				fields = gelf.Fields{}
			}
			fields[k] = v
		}

		return send(cfg, fields, strings.Join(c.Args(), " "))
	}

	return app
}

func send(cfg *Config, fields gelf.Fields, message string) error {
	level, err := cfg.SeverityLevel()
	if err != nil {
		return err
	}

	servers, err := cfg.Endpoints()
	if err != nil {
		return err
	}

	opts, err := cfg.ClientOptions()
	if err != nil {
		return err
	}

	client, err := gelf.NewClient(servers, opts)
	if err != nil {
		return errors.Wrap(err, "failed to create client")
	}

	if message != "" {
		if _, err := client.Log(level, message, fields); err != nil {
			client.Close()
			return errors.Wrap(err, "failed to send message")
		}
		return errors.Wrap(client.Close(), "failed to close client")
	}

	// no message argument: stream stdin line by line
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if _, err := client.Log(level, line, fields); err != nil {
			client.Close()
			return errors.Wrap(err, "failed to send line")
		}
	}
	if err := scanner.Err(); err != nil {
		client.Close()
		return errors.Wrap(err, "failed to read stdin")
	}

	return errors.Wrap(client.Close(), "failed to close client")
}
