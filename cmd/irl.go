package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/urfave/cli/v2"
	"github.com/womat/debug"

	"irl/pkg/app"
	"irl/pkg/app/config"
	"irl/pkg/irprotocol"
)

const defaultConfigFile = "/opt/womat/config/" + app.MODULE + ".yaml"

func main() {
	exitCode := 1
	defer func() {
		os.Exit(exitCode)
	}()

	// cfg holds the application configuration
	cfg := config.NewConfig()

	// setup loads the configuration and starts the debug logger, the returned func closes the debug file
	setup := func() (func(), error) {
		if err := cfg.LoadConfig(); err != nil {
			return nil, err
		}

		debug.SetDebug(cfg.Debug.File, cfg.Debug.Flag)
		return func() {
			debug.InfoLog.Printf("closing debug file %s", cfg.Debug.FileString)
			_ = cfg.Debug.File.Close()
		}, nil
	}

	cliApp := &cli.App{
		Name:    app.MODULE,
		Usage:   "IR remote receiver and sender",
		Version: app.VERSION,
		Description: "Decode the messages of IR remote controls and publish them to mqtt" +
			"\n and send IR messages requested by the web service or the mqtt command topic." +
			"\n Supported protocols: NEC, NEC extended, Panasonic, Sony SIRC (12, 15, 20 bit)," +
			"\n unknown remotes are reported as raw timings or as hash.",
		UsageText: "irl [--config <file>] [--log standard|debug|trace] [command]" +
			"\n\nEXAMPLE:" +
			"\n\tstart the receiver and use the configuration file irl.yaml" +
			"\n\t\tirl --config /opt/womat/irl.yaml" +
			"\n\tsend the NEC command 0x1a to address 0x00" +
			"\n\t\tirl send --protocol nec --address 0 --command 0x1a",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Destination: &cfg.Flag.ConfigFile, Value: defaultConfigFile, Usage: "load configuration from `FILE`"},
			&cli.StringFlag{Name: "log", Aliases: []string{"l"}, Destination: &cfg.Flag.Debug, Usage: "`LEVEL` defines the log level (standard|debug|trace)"},
		},
		Commands: []*cli.Command{
			{
				Name:  "send",
				Usage: "send one IR message and exit",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "protocol", Aliases: []string{"p"}, Value: "nec", Usage: "`PROTOCOL` of the message"},
					&cli.UintFlag{Name: "address", Aliases: []string{"a"}, Usage: "`ADDRESS` of the message"},
					&cli.UintFlag{Name: "command", Aliases: []string{"m"}, Usage: "`COMMAND` of the message"},
					&cli.IntFlag{Name: "repeat", Aliases: []string{"r"}, Usage: "`COUNT` of repetitions"},
				},
				Action: func(ctx *cli.Context) error {
					p, err := irprotocol.ParseProtocol(ctx.String("protocol"))
					if err != nil {
						return err
					}

					done, err := setup()
					if err != nil {
						return err
					}
					defer done()

					return app.Send(cfg, app.Request{
						Protocol: p,
						Address:  uint16(ctx.Uint("address")),
						Command:  uint32(ctx.Uint("command")),
						Repeat:   ctx.Int("repeat"),
					})
				},
			},
			{
				Name:  "protocols",
				Usage: "list the decoded protocols in priority order",
				Action: func(ctx *cli.Context) error {
					if err := cfg.LoadConfig(); err != nil {
						return err
					}

					for i, p := range cfg.Decoder.ProtocolList {
						fmt.Printf("%2d %v\n", i+1, p)
					}
					return nil
				},
			},
		},
		Action: func(ctx *cli.Context) error {
			done, err := setup()
			if err != nil {
				return err
			}
			defer done()

			a, err := app.New(cfg)
			defer func() {
				debug.InfoLog.Printf("closing app %s", app.Version())
				_ = a.Close()
			}()

			if err != nil {
				return err
			}

			debug.InfoLog.Printf("starting app %s", app.Version())
			if err = a.Run(); err != nil {
				return err
			}

			// capture exit signals to ensure resources are released on exit.
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			// wait for am os.Interrupt signal (CTRL C) or a failed service
			select {
			case sig := <-quit:
				debug.InfoLog.Printf("Got %s signal. Aborting...", sig)
			case <-a.Shutdown():
				debug.ErrorLog.Print("app stopped. Aborting...")
			}

			return nil
		},
	}

	// we expect to have more command line flags in the future - sort them
	sort.Sort(cli.FlagsByName(cliApp.Flags))
	sort.Sort(cli.CommandsByName(cliApp.Commands))

	err := cliApp.Run(os.Args)
	if err != nil {
		debug.FatalLog.Print(err)
		exitCode = 1
		return
	}

	exitCode = 0
	return
}
