// Command send posts a message to a messenger server and prints the curl
// command that reads it back. The message comes from the arguments, or from
// standard input when there are none:
//
//	send -theme cat "hello there"
//	fortune | send
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"terminal-messenger/client"
	"time"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

type Config struct {
	ServerURL string        `envconfig:"TERMSG_SERVER_URL" default:"http://localhost:3000"`
	Timeout   time.Duration `envconfig:"TERMSG_TIMEOUT" default:"10s"`
	// TERMSG_COLOURS enables colorized output
	Colours bool `envconfig:"TERMSG_COLOURS" default:"true"`
}

func main() {
	code, err := run(os.Args[1:], os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "send: %v\n", err)
	}
	os.Exit(code)
}

func run(args []string, stdin io.Reader, stdout io.Writer) (int, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	flags := flag.NewFlagSet("send", flag.ContinueOnError)
	themeID := flags.String("theme", "", "theme to render the message with (server default when empty)")
	listThemes := flags.Bool("themes", false, "list the themes offered by the server")
	preview := flags.Bool("preview", false, "print the rendered message after sending")
	if err := flags.Parse(args); err != nil {
		return exitConfig, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	c := client.New(config.ServerURL, config.Timeout)

	if *listThemes {
		themes, err := c.Themes(ctx)
		if err != nil {
			return exitRuntime, err
		}
		for _, t := range themes {
			fmt.Fprintf(stdout, "%-10s %s\n", t.ID, t.Name)
		}
		return exitOK, nil
	}

	message, err := readMessage(flags.Args(), stdin)
	if err != nil {
		return exitRuntime, err
	}
	sent, err := c.Send(ctx, message, *themeID)
	if err != nil {
		return exitRuntime, err
	}

	command := "curl " + sent.URL
	if config.Colours {
		command = color.New(color.FgGreen, color.OpBold).Sprint(command)
	}
	fmt.Fprintln(stdout, command)

	if *preview {
		rendered, err := c.Fetch(ctx, sent.ID, config.Colours)
		if err != nil {
			return exitRuntime, err
		}
		fmt.Fprint(stdout, rendered)
	}
	return exitOK, nil
}

// readMessage joins the arguments, or reads stdin when there are none.
// Only the trailing newline of piped input is dropped.
func readMessage(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
