/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/Comcast/chunks/engine"
	"github.com/Comcast/chunks/sio"
	"github.com/Comcast/chunks/storage"
	"github.com/Comcast/chunks/storage/bolt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runOpts struct {
	modules

	conf       string
	goal       string
	seed       int64
	singleStep bool

	io        string
	wsAddr    string
	broker    string
	clientId  string
	subTopics string
	outTopic  string

	haltOnEOF    bool
	echo         bool
	tags         bool
	timestamps   bool
	shellExpand  bool
	printBuffers bool
	watch        []string
	wait         time.Duration

	db   string
	host string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load modules, set a goal, and run the rules",
	Long: `Load modules, set a goal, and run the rules.

Without --io, the engine runs until it's quiet.  With --io, a host
couples the engine to stdin/stdout ("stdio"), WebSocket clients
("ws"), or an MQTT broker ("mq").  With --db, the modules are
restored from and then saved to a bolt database.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runOpts.modules.flags(runCmd)

	fs := runCmd.Flags()
	fs.StringVar(&runOpts.conf, "conf", "", "engine configuration (YAML)")
	fs.StringVar(&runOpts.goal, "goal", "", "goal chunk")
	fs.Int64Var(&runOpts.seed, "seed", 0, "random seed (0 keeps the conf's seed)")
	fs.BoolVar(&runOpts.singleStep, "single-step", false, "don't schedule cycles")

	fs.StringVar(&runOpts.io, "io", "", `couplings: "stdio", "ws", or "mq"`)
	fs.StringVar(&runOpts.wsAddr, "ws-addr", "localhost:8080", "WebSocket listen address")
	fs.StringVar(&runOpts.broker, "broker", "tcp://localhost:1883", "MQTT broker")
	fs.StringVar(&runOpts.clientId, "client-id", "", "MQTT client id (default random)")
	fs.StringVar(&runOpts.subTopics, "sub", "chunks/in/#", "MQTT subscription topics (comma-separated, TOPIC[:QOS])")
	fs.StringVar(&runOpts.outTopic, "pub", "chunks/out", "MQTT output topic (TOPIC[:QOS])")

	fs.BoolVar(&runOpts.haltOnEOF, "halt-on-eof", true, "stop when input ends")
	fs.BoolVar(&runOpts.echo, "echo", false, "echo stdio input")
	fs.BoolVar(&runOpts.tags, "tags", true, "tag stdio output")
	fs.BoolVar(&runOpts.timestamps, "ts", false, "timestamp stdio output")
	fs.BoolVar(&runOpts.shellExpand, "sh", false, "shell-expand stdio input")
	fs.BoolVar(&runOpts.printBuffers, "print-buffers", false, "print buffer changes")
	fs.StringSliceVar(&runOpts.watch, "watch", nil, "modules whose buffer changes are output")
	fs.DurationVar(&runOpts.wait, "wait", time.Second, "how long to wait for couplings to stop")

	fs.StringVar(&runOpts.db, "db", "", "bolt database for module snapshots")
	fs.StringVar(&runOpts.host, "host", "chunks", "host name in the database")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	conf := engine.DefaultConf()
	if runOpts.conf != "" {
		var err error
		if conf, err = engine.ReadConf(runOpts.conf); err != nil {
			return err
		}
	}
	if runOpts.seed != 0 {
		conf.Seed = runOpts.seed
	}
	if runOpts.singleStep {
		conf.SingleStep = true
	}

	e := engine.NewEngine(conf, logger)
	out := cmd.OutOrStdout()
	e.Log = func(msg string) {
		fmt.Fprintln(out, msg)
	}

	algorithms, err := runOpts.algorithms(cmd)
	if err != nil {
		return err
	}

	var st storage.Storage = &storage.NoopStorage{}
	if runOpts.db != "" {
		st = bolt.NewStorage(runOpts.db, logger.Named("storage"))
	}
	if err = st.Open(ctx); err != nil {
		return err
	}
	defer st.Close(context.Background())

	mss, err := st.GetHost(ctx, runOpts.host)
	if err != nil {
		return err
	}
	if err = storage.Restore(e, mss, algorithms); err != nil {
		return err
	}
	logger.Info("restored", zap.String("host", runOpts.host), zap.Int("modules", len(mss)))

	if err = runOpts.load(e, algorithms); err != nil {
		return err
	}

	if runOpts.io == "" {
		err = runQuietly(ctx, e)
	} else {
		err = runHost(ctx, e, algorithms)
	}
	if err != nil {
		return err
	}

	return st.WriteState(context.Background(), runOpts.host, storage.Snapshot(e))
}

func runQuietly(ctx context.Context, e *engine.Engine) error {
	if runOpts.goal != "" {
		if err := e.SetGoal(runOpts.goal); err != nil {
			return err
		}
	}
	if e.Conf.SingleStep {
		return e.Next()
	}
	cycles, err := e.RunUntilQuiet(ctx)
	logger.Info("quiet", zap.Int("cycles", cycles))
	return err
}

func couplings() (sio.Couplings, error) {
	switch runOpts.io {
	case "stdio":
		s := sio.NewStdio(runOpts.shellExpand, logger.Named("stdio"))
		s.EchoInput = runOpts.echo
		s.Tags = runOpts.tags
		s.Timestamps = runOpts.timestamps
		s.PrintBuffers = runOpts.printBuffers
		return s, nil
	case "ws":
		return sio.NewWebSocket(runOpts.wsAddr, logger.Named("ws")), nil
	case "mq":
		m := sio.NewMQTT(context.Background(), runOpts.broker, runOpts.clientId, logger.Named("mqtt"))
		m.SubTopics = runOpts.subTopics
		m.OutTopic = runOpts.outTopic
		m.ModuleFromTopic = true
		return m, nil
	default:
		return nil, fmt.Errorf("unknown couplings %q", runOpts.io)
	}
}

func runHost(ctx context.Context, e *engine.Engine, algorithms func(string) engine.Algorithms) error {
	c, err := couplings()
	if err != nil {
		return err
	}
	if err = c.Start(ctx); err != nil {
		return err
	}

	// The couplings report what the engine logs.
	e.Log = nil

	h, err := sio.NewHost(ctx, e, &sio.HostConf{
		HaltOnInputEOF: runOpts.haltOnEOF,
		Watch:          runOpts.watch,
	}, c, logger.Named("host"))
	if err != nil {
		return err
	}
	h.Algorithms = algorithms

	if runOpts.goal != "" {
		if err = h.Process(&sio.Input{Chunk: runOpts.goal}); err != nil {
			return err
		}
	}

	loopErr := h.Loop(ctx)

	stopCtx, cancel := context.WithTimeout(context.Background(), runOpts.wait)
	defer cancel()
	if err = c.Stop(stopCtx); err != nil {
		logger.Warn("stopping couplings", zap.Error(err))
	}

	if loopErr == context.Canceled {
		loopErr = nil
	}
	return loopErr
}
