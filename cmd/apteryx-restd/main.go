// Command apteryx-restd is the FastCGI front end: it loads the schema,
// wires a store and an RPC dispatcher behind a handlers.Gateway, publishes
// the startup YANG Library content, and serves the permissive JSON-tree
// API plus RESTCONF over a UNIX-socket FastCGI listener until signalled to
// stop.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/freeconf/yang/fc"

	"github.com/apteryx-rest/gateway/internal/config"
	"github.com/apteryx-rest/gateway/internal/fcgiserver"
	"github.com/apteryx-rest/gateway/internal/handlers"
	"github.com/apteryx-rest/gateway/internal/logging"
	"github.com/apteryx-rest/gateway/internal/memstore"
	"github.com/apteryx-rest/gateway/internal/restapi"
	"github.com/apteryx-rest/gateway/internal/rpcdispatch"
	"github.com/apteryx-rest/gateway/internal/schema"
	"github.com/apteryx-rest/gateway/internal/subscribe"
	"github.com/apteryx-rest/gateway/internal/yanglibrary"
)

const (
	apiPrefix      = "/api"
	restconfPrefix = "/restconf"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "apteryx-restd:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags, err := config.Parse(args)
	if err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}

	fc.DebugLog(flags.Debug || flags.Verbose)

	logger := logging.NewLogger()
	if flags.LoggingFlags != "" {
		stop, err := logger.WatchFlagsFile(flags.LoggingFlags)
		if err != nil {
			return fmt.Errorf("watching logging-flags file: %w", err)
		}
		defer stop()
	}

	loader := schema.NewLoader(flags.SchemaPath)
	if flags.SupportedModels != "" {
		names, err := readSupportedModels(flags.SupportedModels)
		if err != nil {
			return fmt.Errorf("reading supported-models file: %w", err)
		}
		loader.RestrictTo(names)
	}
	facade, err := loader.Build()
	if err != nil {
		return fmt.Errorf("loading schema: %w", err)
	}

	st := memstore.New("")

	var interp rpcdispatch.Interpreter = rpcdispatch.NopInterpreter{}
	if flags.RPCScripts != "" {
		lua := rpcdispatch.NewLuaInterpreter()
		defer lua.Close()
		interp = lua
	}
	dispatcher := rpcdispatch.New(interp)
	if flags.RPCScripts != "" {
		if err := dispatcher.LoadDir(flags.RPCScripts); err != nil {
			return fmt.Errorf("loading RPC scripts from %s: %w", flags.RPCScripts, err)
		}
	}

	if err := yanglibrary.Publish(context.Background(), st, facade); err != nil {
		return fmt.Errorf("publishing yang-library: %w", err)
	}

	gw := &handlers.Gateway{
		Facade:         facade,
		Store:          st,
		Dispatcher:     dispatcher,
		Subs:           subscribe.NewEngine(facade, st),
		Logger:         logger,
		APIPrefix:      apiPrefix,
		RESTConfPrefix: restconfPrefix + "/data",
		Boot:           time.Now(),
		Explorer:       flags.Explorer,
	}

	mux := http.NewServeMux()
	restapi.Mount(mux, gw, apiPrefix, restconfPrefix)

	if flags.PIDFile != "" {
		if err := os.WriteFile(flags.PIDFile, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("writing pid file: %w", err)
		}
		defer os.Remove(flags.PIDFile)
	}

	srv, err := fcgiserver.Listen(flags.Socket)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", flags.Socket, err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		srv.Shutdown()
	}()

	return srv.Serve(mux)
}

// readSupportedModels parses a flat file of module[@revision] names, one
// per line, blank lines and "#"-prefixed comments ignored.
func readSupportedModels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names, sc.Err()
}
