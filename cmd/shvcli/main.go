// Command shvcli is a minimal SHV RPC client: connect, call a method,
// print the Cpon-encoded result.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/shvgo/shv"
	"github.com/shvgo/shv/config"
)

func main() {
	app := cli.NewApp()
	app.Name = "shvcli"
	app.Usage = "call an SHV RPC method from the command line"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config", Usage: "path to a YAML config file"},
		cli.StringFlag{Name: "server", Usage: "host:port of the SHV broker/device"},
		cli.StringFlag{Name: "user"},
		cli.StringFlag{Name: "password"},
		cli.StringFlag{Name: "path", Usage: "shv path of the target method"},
		cli.StringFlag{Name: "method", Value: "ls"},
		cli.DurationFlag{Name: "timeout", Value: 10 * time.Second},
		cli.BoolFlag{Name: "debug"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	lg := logrus.New()
	if c.Bool("debug") {
		lg.SetLevel(logrus.DebugLevel)
	}
	shv.SetLogger(lg)

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		if c.String("server") == "" {
			return err
		}
		cfg = &config.Config{Server: c.String("server")}
	}
	if c.String("server") != "" {
		cfg.Server = c.String("server")
	}
	if c.String("user") != "" {
		cfg.User = c.String("user")
	}
	if c.String("password") != "" {
		cfg.Password = c.String("password")
	}

	if c.Bool("debug") {
		if dump, err := cfg.Dump(); err == nil {
			lg.Debugf("effective config:\n%s", dump)
		}
	}

	opt, err := cfg.ClientOption()
	if err != nil {
		return err
	}

	client := shv.NewClient(opt, lg)
	ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Disconnect()

	result, err := client.Call(ctx, c.String("path"), c.String("method"), shv.NewNull())
	if err != nil {
		return fmt.Errorf("call: %w", err)
	}

	out, err := shv.WriteCpon(result, &shv.WriterOptions{Indent: []byte("  ")})
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
