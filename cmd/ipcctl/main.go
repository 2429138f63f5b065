// Command ipcctl calls the sample contracts hosted by ipcd.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli"

	"ipc-service/client"
	"ipc-service/logging"
	"ipc-service/sample"
)

// action adapts a command body to cli.ActionFunc, opening a session around it.
func action(run func(ctx context.Context, s *session, args cli.Args) (any, error)) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		logger, err := logging.New(c.GlobalString("log-level"))
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		defer logger.Sync()

		s, err := newSession(c, logger)
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		defer s.closer()

		ctx, cancel := context.WithTimeout(context.Background(), c.GlobalDuration("timeout"))
		defer cancel()

		result, err := run(ctx, s, c.Args())
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		if result != nil {
			fmt.Println(result)
		}
		return nil
	}
}

func floats(args cli.Args, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("expected %d arguments, got %d", n, len(args))
	}
	out := make([]float64, n)
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = f
	}
	return out, nil
}

func ints(args cli.Args, n int) ([]int, error) {
	if len(args) != n {
		return nil, fmt.Errorf("expected %d arguments, got %d", n, len(args))
	}
	out := make([]int, n)
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

func parseStyle(name string) (sample.TextStyle, error) {
	switch name {
	case "upper":
		return sample.Upper, nil
	case "lower":
		return sample.Lower, nil
	case "reverse":
		return sample.Reverse, nil
	}
	return 0, fmt.Errorf("unknown style %q (upper, lower, reverse)", name)
}

// jsonArgs decodes each argument as JSON, falling back to the raw string.
func jsonArgs(args []string) []any {
	out := make([]any, len(args))
	for i, a := range args {
		var v any
		if err := json.Unmarshal([]byte(a), &v); err != nil {
			v = a
		}
		out[i] = v
	}
	return out
}

func addFloatCommand(ctx context.Context, s *session, args cli.Args) (any, error) {
	v, err := floats(args, 2)
	if err != nil {
		return nil, err
	}
	return client.InvokeValue(ctx, s.computing, func(c sample.ComputingService) float32 {
		return c.AddFloat(float32(v[0]), float32(v[1]))
	})
}

func addComplexCommand(ctx context.Context, s *session, args cli.Args) (any, error) {
	v, err := floats(args, 4)
	if err != nil {
		return nil, err
	}
	z, err := client.InvokeValue(ctx, s.computing, func(c sample.ComputingService) sample.Complex {
		return c.AddComplex(sample.Complex{A: v[0], B: v[1]}, sample.Complex{A: v[2], B: v[3]})
	})
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("%g%+gi", z.A, z.B), nil
}

func getDataCommand(ctx context.Context, s *session, args cli.Args) (any, error) {
	v, err := ints(args, 2)
	if err != nil {
		return nil, err
	}
	return client.InvokeValue(ctx, s.computing, func(c sample.ComputingService) int { return c.GetData(v[0], v[1]) })
}

func divideCommand(ctx context.Context, s *session, args cli.Args) (any, error) {
	v, err := floats(args, 2)
	if err != nil {
		return nil, err
	}
	return client.InvokeValue(ctx, s.computing, func(c sample.ComputingService) float64 {
		q, _ := c.Divide(v[0], v[1])
		return q
	})
}

func convertTextCommand(ctx context.Context, s *session, args cli.Args) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("expected TEXT STYLE")
	}
	style, err := parseStyle(args[1])
	if err != nil {
		return nil, err
	}
	return client.InvokeValue(ctx, s.system, func(c sample.SystemService) string { return c.ConvertText(args[0], style) })
}

func newIDCommand(ctx context.Context, s *session, _ cli.Args) (any, error) {
	return client.InvokeValue(ctx, s.system, func(c sample.SystemService) string { return c.NewID() })
}

func echoCommand(ctx context.Context, s *session, args cli.Args) (any, error) {
	return client.InvokeValue(ctx, s.system, func(c sample.SystemService) string { return c.Echo(ctx, args.First()) })
}

func voidCommand(ctx context.Context, s *session, _ cli.Args) (any, error) {
	return nil, s.system.Invoke(ctx, func(c sample.SystemService) { c.ReturnVoid() })
}

func failCommand(ctx context.Context, s *session, args cli.Args) (any, error) {
	return nil, s.system.Invoke(ctx, func(c sample.SystemService) { c.Fail(args.First()) })
}

func callCommand(ctx context.Context, s *session, args cli.Args) (any, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("expected CONTRACT METHOD [ARGS...]")
	}
	params := jsonArgs(args[2:])
	switch args[0] {
	case "computing":
		return s.computing.Call(ctx, args[1], params...)
	case "system":
		return s.system.Call(ctx, args[1], params...)
	}
	return nil, fmt.Errorf("unknown contract %q (computing, system)", args[0])
}

func main() {
	app := cli.NewApp()
	app.Name = "ipcctl"
	app.Usage = "call the sample contracts hosted by ipcd"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "pipe", Value: "computingEndpoint", Usage: "pipe name of the computing endpoint"},
		cli.StringFlag{Name: "addr", Value: "127.0.0.1:45684", Usage: "host:port of the system endpoint"},
		cli.BoolFlag{Name: "tls", Usage: "use TLS for the system endpoint"},
		cli.StringFlag{Name: "ca", Usage: "PEM file of CAs trusted for TLS (system roots when empty)"},
		cli.StringFlag{Name: "etcd", Usage: "comma separated etcd endpoints; discovers the system endpoint instead of --addr"},
		cli.StringFlag{Name: "balancer", Value: "round_robin", Usage: "round_robin, weighted_random or consistent_hash"},
		cli.StringFlag{Name: "codec", Value: "gob", Usage: "gob, json or proto; must match the endpoint"},
		cli.IntFlag{Name: "retries", Value: 3, Usage: "connection retries while an endpoint is starting"},
		cli.DurationFlag{Name: "timeout", Value: 10 * time.Second, Usage: "deadline for the whole call"},
		cli.StringFlag{Name: "log-level", Value: "warn", Usage: "debug, info, warn or error"},
	}
	app.Commands = []cli.Command{
		{Name: "add-float", Usage: "X Y", Action: action(addFloatCommand)},
		{Name: "add-complex", Usage: "A1 B1 A2 B2", Action: action(addComplexCommand)},
		{Name: "get-data", Usage: "A B", Action: action(getDataCommand)},
		{Name: "divide", Usage: "X Y", Action: action(divideCommand)},
		{Name: "convert-text", Usage: "TEXT upper|lower|reverse", Action: action(convertTextCommand)},
		{Name: "new-id", Usage: "generate an identifier on the host", Action: action(newIDCommand)},
		{Name: "echo", Usage: "TEXT", Action: action(echoCommand)},
		{Name: "void", Usage: "call a method without a result", Action: action(voidCommand)},
		{Name: "fail", Usage: "MESSAGE", Action: action(failCommand)},
		{Name: "call", Usage: "computing|system METHOD [JSON ARGS...]", Action: action(callCommand)},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
