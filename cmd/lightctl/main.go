// Package main is the command-line client for the light analyzer control service.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	grpcAdapter "github.com/quentinrf/light-analyzer/internal/adapters/grpc"
	"github.com/quentinrf/light-analyzer/pkg/tlsconfig"
)

const (
	flagAddr    = "addr"
	flagTLSCert = "tls-cert"
	flagTLSKey  = "tls-key"
	flagTLSCA   = "tls-ca"
	flagTimeout = "timeout"
	flagFrom    = "from"
	flagTo      = "to"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	app := &cli.App{
		Name:  "lightctl",
		Usage: "control a running light analyzer",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagAddr,
				Value:   "localhost:50051",
				Usage:   "address of the control service",
				EnvVars: []string{"LIGHTCTL_ADDR"},
			},
			&cli.StringFlag{
				Name:    flagTLSCert,
				Usage:   "client certificate for mTLS",
				EnvVars: []string{"TLS_CERT"},
			},
			&cli.StringFlag{
				Name:    flagTLSKey,
				Usage:   "client private key for mTLS",
				EnvVars: []string{"TLS_KEY"},
			},
			&cli.StringFlag{
				Name:    flagTLSCA,
				Usage:   "CA that signed the server certificate",
				EnvVars: []string{"TLS_CA"},
			},
			&cli.DurationFlag{
				Name:  flagTimeout,
				Value: 5 * time.Second,
				Usage: "timeout for unary calls",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "start",
				Usage:  "start a sampling session",
				Action: unaryAction((*grpcAdapter.ControlClient).Start),
			},
			{
				Name:   "stop",
				Usage:  "stop the sampling session",
				Action: unaryAction((*grpcAdapter.ControlClient).Stop),
			},
			{
				Name:   "status",
				Usage:  "print the session status",
				Action: unaryAction((*grpcAdapter.ControlClient).GetStatus),
			},
			{
				Name:  "sessions",
				Usage: "list journaled sessions",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagFrom,
						Usage: "only sessions started at or after this RFC 3339 time",
					},
					&cli.StringFlag{
						Name:  flagTo,
						Usage: "only sessions started before this RFC 3339 time",
					},
				},
				Action: sessionsAction,
			},
			{
				Name:   "watch",
				Usage:  "stream readings and notices until interrupted",
				Action: watchAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "lightctl: %v\n", err)
		os.Exit(1)
	}
}

type unaryCall func(*grpcAdapter.ControlClient, context.Context, ...grpc.CallOption) (*structpb.Struct, error)

func unaryAction(call unaryCall) cli.ActionFunc {
	return func(c *cli.Context) error {
		client, closeConn, err := dial(c)
		if err != nil {
			return err
		}
		defer closeConn()

		ctx, cancel := context.WithTimeout(c.Context, c.Duration(flagTimeout))
		defer cancel()

		resp, err := call(client, ctx)
		if err != nil {
			return describe(err)
		}
		printStatus(c.App.Writer, resp)
		return nil
	}
}

func sessionsAction(c *cli.Context) error {
	client, closeConn, err := dial(c)
	if err != nil {
		return err
	}
	defer closeConn()

	ctx, cancel := context.WithTimeout(c.Context, c.Duration(flagTimeout))
	defer cancel()

	resp, err := client.ListSessions(ctx, c.String(flagFrom), c.String(flagTo))
	if err != nil {
		return describe(err)
	}
	printSessions(c.App.Writer, resp)
	return nil
}

func watchAction(c *cli.Context) error {
	client, closeConn, err := dial(c)
	if err != nil {
		return err
	}
	defer closeConn()

	stream, err := client.WatchReadings(c.Context)
	if err != nil {
		return describe(err)
	}

	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
			return nil
		}
		if err != nil {
			return describe(err)
		}
		printFeed(c.App.Writer, msg)
	}
}

func dial(c *cli.Context) (*grpcAdapter.ControlClient, func(), error) {
	files := tlsconfig.Files{
		Cert: c.String(flagTLSCert),
		Key:  c.String(flagTLSKey),
		CA:   c.String(flagTLSCA),
	}

	creds := insecure.NewCredentials()
	if files.Enabled() {
		tlsCfg, err := tlsconfig.LoadClientTLS(files)
		if err != nil {
			return nil, nil, fmt.Errorf("load TLS config: %w", err)
		}
		creds = credentials.NewTLS(tlsCfg)
	}

	conn, err := grpc.NewClient(c.String(flagAddr), grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", c.String(flagAddr), err)
	}
	closeConn := func() {
		if err := conn.Close(); err != nil {
			log.Debug().Err(err).Msg("failed to close connection")
		}
	}
	return grpcAdapter.NewControlClient(conn), closeConn, nil
}

func describe(err error) error {
	if s, ok := status.FromError(err); ok {
		return fmt.Errorf("%s: %s", s.Code(), s.Message())
	}
	return err
}

func printStatus(w io.Writer, s *structpb.Struct) {
	f := s.GetFields()
	state := "idle"
	if f["active"].GetBoolValue() {
		state = "sampling"
	}

	fmt.Fprintf(w, "state:          %s\n", state)
	fmt.Fprintf(w, "readings:       %d\n", int64(f["reading_count"].GetNumberValue()))
	fmt.Fprintf(w, "last lux:       %s\n", f["last_lux_text"].GetStringValue())
	fmt.Fprintf(w, "write failures: %d\n", int64(f["write_failures"].GetNumberValue()))
	if id := f["session_id"].GetStringValue(); id != "" {
		fmt.Fprintf(w, "session:        %s\n", id)
	}
	fmt.Fprintf(w, "log:            %s\n", f["log_path"].GetStringValue())
}

func printFeed(w io.Writer, msg *structpb.Struct) {
	f := msg.GetFields()
	switch f["type"].GetStringValue() {
	case "reading":
		fmt.Fprintf(w, "#%d  %s lux (%s)\n",
			int64(f["count"].GetNumberValue()), f["lux_text"].GetStringValue(), f["category"].GetStringValue())
	case "notice":
		fmt.Fprintf(w, "* %s\n", f["message"].GetStringValue())
	}
}

func printSessions(w io.Writer, resp *structpb.Struct) {
	sessions := resp.GetFields()["sessions"].GetListValue().GetValues()
	if len(sessions) == 0 {
		fmt.Fprintln(w, "no sessions")
		return
	}

	for _, v := range sessions {
		f := v.GetStructValue().GetFields()
		stopped := f["stopped_at"].GetStringValue()
		if f["running"].GetBoolValue() {
			stopped = "running"
		}
		fmt.Fprintf(w, "%s  %s -> %s  readings=%d failures=%d\n",
			f["id"].GetStringValue(),
			f["started_at"].GetStringValue(),
			stopped,
			int64(f["reading_count"].GetNumberValue()),
			int64(f["write_failures"].GetNumberValue()))
	}
}
