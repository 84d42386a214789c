// Package config defines the command-line surface: flags, defaults, and
// validation. Daemonisation and PID-file ownership stay with main, config
// only parses and validates what was asked for.
package config

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Flags holds the parsed CLI surface.
type Flags struct {
	Background      bool
	Debug           bool
	Verbose         bool
	DefaultEncoding string
	Arrays          bool
	Types           bool
	SchemaPath      string
	SupportedModels string
	PIDFile         string
	Socket          string
	LoggingFlags    string
	Explorer        bool
	RPCScripts      string
}

const defaultSocket = "/var/run/apteryx-rest.sock"

// Parse builds a cobra root command binding every flag, runs it against
// args (normally os.Args[1:]), and returns the populated Flags. It never
// calls os.Exit itself — main decides exit codes from the returned error.
func Parse(args []string) (*Flags, error) {
	f := &Flags{DefaultEncoding: "application/json", Socket: defaultSocket}

	cmd := &cobra.Command{
		Use:           "apteryx-restd",
		Short:         "RESTCONF and JSON-tree gateway in front of a hierarchical configuration store",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(*cobra.Command, []string) error {
			switch f.DefaultEncoding {
			case "application/json", "application/yang-data+json":
			default:
				return fmt.Errorf("invalid -e encoding %q", f.DefaultEncoding)
			}
			return nil
		},
	}

	fs := cmd.Flags()
	fs.BoolVarP(&f.Background, "background", "b", false, "accepted for compatibility; the process does not detach")
	fs.BoolVarP(&f.Debug, "debug", "d", false, "enable debug tracing")
	fs.BoolVarP(&f.Verbose, "verbose", "v", false, "enable verbose tracing")
	fs.StringVarP(&f.DefaultEncoding, "encoding", "e", f.DefaultEncoding, "response encoding, application/json or application/yang-data+json; validated only, negotiation still starts from application/json")
	fs.BoolVarP(&f.Arrays, "arrays", "a", false, "accepted only; list rendering is chosen per request by X-JSON-Array")
	fs.BoolVarP(&f.Types, "types", "t", false, "accepted only; value typing is chosen per request by X-JSON-Types")
	fs.StringVarP(&f.SchemaPath, "schema-path", "m", "", "colon-separated schema search directories")
	fs.StringVarP(&f.SupportedModels, "supported-models", "n", "", "file listing the supported module[@revision] allow-list")
	fs.StringVarP(&f.PIDFile, "pid-file", "p", "", "PID file path")
	fs.StringVarP(&f.Socket, "socket", "s", f.Socket, "FastCGI listener socket path")
	fs.StringVarP(&f.LoggingFlags, "logging-flags", "l", "", "logging-flags file, reloaded on change")
	fs.BoolVarP(&f.Explorer, "explorer", "x", false, "serve a read-only HTML explorer for the .html extension")
	fs.StringVarP(&f.RPCScripts, "rpc-scripts", "r", "", "directory of .lua RPC handler scripts")

	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		return nil, err
	}
	return f, nil
}
