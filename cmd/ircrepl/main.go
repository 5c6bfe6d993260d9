package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/gissleh/ircengine"
	"github.com/gissleh/ircengine/handlers"
	"github.com/gissleh/ircengine/ident"
	"github.com/gissleh/ircengine/ircmetrics"
)

var (
	flagNick        string
	flagAlts        string
	flagUser        string
	flagPass        string
	flagServer      string
	flagSsl         bool
	flagSkipVerify  bool
	flagConfig      string
	flagMetrics     string
	flagIdentListen string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ircrepl",
		Short: "Connect to an IRC server and type commands into it",
		Long: "ircrepl connects to an IRC server and prints every event as JSON. Lines read from stdin are\n" +
			"handled as input, so /join, /msg and the rest work. Use /target to pick where plain text goes\n" +
			"and /clientstatus to dump the client state.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&flagNick, "nick", env("IRCREPL_NICK", "Test"), "The client nick")
	flags.StringVar(&flagAlts, "alts", env("IRCREPL_ALTS", ""), "Alternative nicks to use, comma separated")
	flags.StringVar(&flagUser, "user", env("IRCREPL_USER", "test"), "The client user/ident")
	flags.StringVar(&flagPass, "pass", env("IRCREPL_PASS", ""), "The server password")
	flags.StringVar(&flagServer, "server", env("IRCREPL_SERVER", "localhost:6667"), "The server to connect to")
	flags.BoolVar(&flagSsl, "ssl", false, "Whether to connect securely")
	flags.BoolVar(&flagSkipVerify, "skip-verify", false, "Skip SSL verification")
	flags.StringVar(&flagConfig, "config", env("IRCREPL_CONFIG", ""), "A YAML config file; flags that are set override it")
	flags.StringVar(&flagMetrics, "metrics", env("IRCREPL_METRICS", ""), "Serve prometheus metrics on this address")
	flags.StringVar(&flagIdentListen, "ident-listen", env("IRCREPL_IDENT_LISTEN", ""), "Answer ident requests on this address, like :113")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := irc.Config{}
	if flagConfig != "" {
		file, err := os.Open(flagConfig)
		if err != nil {
			return err
		}

		config, err = irc.LoadConfig(file)
		_ = file.Close()
		if err != nil {
			return err
		}
	}

	flags := cmd.Flags()
	if config.Nick == "" || flags.Changed("nick") {
		config.Nick = flagNick
	}
	if config.User == "" || flags.Changed("user") {
		config.User = flagUser
	}
	if flagAlts != "" {
		config.Alternatives = strings.Split(flagAlts, ",")
	}
	if flagPass != "" {
		config.Password = flagPass
	}
	if flags.Changed("skip-verify") {
		config.SkipSSLVerification = flagSkipVerify
	}

	if flagMetrics != "" {
		metrics, registry := ircmetrics.NewWithRegistry()
		config.Metrics = metrics

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))

		go func() {
			if err := http.ListenAndServe(flagMetrics, mux); err != nil {
				log.Println("Metrics server stopped:", err)
			}
		}()
	}

	if flagIdentListen != "" {
		listener, err := net.Listen("tcp", flagIdentListen)
		if err != nil {
			return err
		}

		go func() {
			if err := ident.Serve(ctx, listener, config.User); err != nil {
				log.Println("Ident server stopped:", err)
			}
		}()
	}

	client := irc.New(ctx, config)

	client.AddHandler(handlers.Input)
	client.AddHandler(handlers.CTCP)

	// The target is read by the stdin loop and changed by the handler.
	var targetMutex sync.Mutex
	var target irc.Target
	setTarget := func(newTarget irc.Target) {
		targetMutex.Lock()
		target = newTarget
		targetMutex.Unlock()
	}
	currentTarget := func() irc.Target {
		targetMutex.Lock()
		defer targetMutex.Unlock()
		return target
	}

	client.AddHandler(func(event *irc.Event, client *irc.Client) {
		switch event.Name() {
		case "input.target":
			event.Kill()

			name := strings.TrimSpace(event.Text)
			switch {
			case name == "":
				log.Println("Unset target")
				setTarget(nil)
			case client.ISupport().IsChannel(name) && client.Channel(name) != nil:
				log.Println("Set target channel", name)
				setTarget(client.Channel(name))
			case !client.ISupport().IsChannel(name) && client.User(name) != nil:
				log.Println("Set target query", name)
				setTarget(client.User(name))
			default:
				log.Println("Target does not exist:", name)
			}

			return

		case "input.clientstatus":
			event.Kill()

			j, err := json.MarshalIndent(client.State(), "", "    ")
			if err != nil {
				return
			}

			fmt.Println(string(j))
			return

		case "channel.ended":
			if currentTarget() == irc.Target(event.Channel) {
				log.Println("Unset target", event.Channel.Name())
				setTarget(nil)
			}

		case "channel.join":
			if event.User == client.Me() {
				log.Println("Set target channel", event.Channel.Name())
				setTarget(event.Channel)
			}

		case "client.disconnect":
			os.Exit(0)
		}

		if event.Killed() || event.Hidden() {
			return
		}

		j, err := json.MarshalIndent(event, "", "    ")
		if err != nil {
			return
		}

		fmt.Println(string(j))
	})

	if err := client.Connect(flagServer, flagSsl); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	go func() {
		exitSignal := make(chan os.Signal, 1)
		signal.Notify(exitSignal, os.Interrupt, syscall.SIGTERM)

		<-exitSignal

		_ = client.Quit("Goodnight.")
	}()

	reader := bufio.NewReader(os.Stdin)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}

		client.EmitInput(strings.TrimRight(line, "\r\n"), currentTarget())
	}

	return nil
}

func env(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}
