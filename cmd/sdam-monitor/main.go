// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Command sdam-monitor opens a Cluster against a seed list and prints every
// topology change it observes. Real wire I/O is out of this module's scope
// (spec.md §1), so without --demo it will only ever see its servers stay
// Unknown; --demo substitutes a scripted in-memory responder so the output
// is worth looking at without a real deployment on hand.
package main

import (
	"fmt"
	"log"
	"os"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/urfave/cli/v2"

	"go.mongodb.org/sdam/address"
	"go.mongodb.org/sdam/description"
	"go.mongodb.org/sdam/internal/logger"
	"go.mongodb.org/sdam/ismaster"
	"go.mongodb.org/sdam/pool"
	"go.mongodb.org/sdam/selector"
	"go.mongodb.org/sdam/topology"
)

func main() {
	app := &cli.App{
		Name:  "sdam-monitor",
		Usage: "watch a MongoDB-shaped cluster's topology change over time",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "seed",
				Aliases: []string{"s"},
				Value:   cli.NewStringSlice("localhost:27017"),
				Usage:   "seed address (repeatable)",
			},
			&cli.StringFlag{
				Name:  "replica-set",
				Usage: "expected replica set name, if connecting to one",
			},
			&cli.DurationFlag{
				Name:  "heartbeat",
				Value: topology.DefaultHeartbeatInterval,
				Usage: "interval between probes",
			},
			&cli.DurationFlag{
				Name:  "for",
				Value: 30 * time.Second,
				Usage: "how long to watch before exiting",
			},
			&cli.BoolFlag{
				Name:  "demo",
				Value: true,
				Usage: "simulate servers in-memory instead of dialing real ones",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "off, info, or debug",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(cctx *cli.Context) error {
	seeds, err := address.ParseHosts(cctx.StringSlice("seed"))
	if err != nil {
		return fmt.Errorf("parsing seeds: %w", err)
	}

	level := logger.ParseLevel(cctx.String("log-level"))
	lg := logger.New(nil, 0, map[logger.Component]logger.Level{
		logger.ComponentTopology:        level,
		logger.ComponentHeartbeat:       level,
		logger.ComponentServerSelection: level,
	})

	opts := []topology.Option{
		topology.WithSeeds(seeds...),
		topology.WithSetName(cctx.String("replica-set")),
		topology.WithHeartbeatInterval(cctx.Duration("heartbeat")),
		topology.WithLogger(lg),
		topology.WithPoolFactory(func(address.Address) pool.ConnectionPool {
			return pool.NewFakePool()
		}),
	}
	if cctx.Bool("demo") {
		opts = append(opts, topology.WithIsMasterCaller(demoCaller()))
	}

	settings := topology.NewSettings(opts...)
	cluster := topology.New(settings)
	if err := cluster.Open(); err != nil {
		return fmt.Errorf("opening cluster: %w", err)
	}
	defer cluster.Close()

	fmt.Printf("watching %d seed(s) for %s...\n", len(seeds), cctx.Duration("for"))

	deadline := time.Now().Add(cctx.Duration("for"))
	var last description.ClusterDescription
	for time.Now().Before(deadline) {
		if current := cluster.Description(); !reflect.DeepEqual(last, current) {
			fmt.Println("--- topology changed ---")
			fmt.Println(spew.Sdump(current))
			last = current
		}

		if _, selErr := cluster.SelectServers(selector.Any, 200*time.Millisecond); selErr != nil {
			fmt.Println("no suitable server yet:", selErr)
		}
	}

	return nil
}

// demoCaller returns an IsMasterCaller that never touches the network: every
// Monitor shares it, so every probed seed reports itself as a healthy
// standalone on every probe, and --demo has something to show without a
// real mongod.
func demoCaller() topology.IsMasterCaller {
	var calls int64
	return func(pool.Socket) (ismaster.Reply, time.Duration, error) {
		n := atomic.AddInt64(&calls, 1)
		reply := ismaster.Reply{
			OK:             true,
			ServerType:     description.Standalone,
			MaxBSONSize:    description.DefaultMaxBSONSize,
			MaxMessageSize: 2 * description.DefaultMaxBSONSize,
			MaxWriteBatch:  description.DefaultMaxWriteBatchSize,
			MinWireVersion: 0,
			MaxWireVersion: 17,
		}
		rtt := time.Duration(5+n%5) * time.Millisecond
		return reply, rtt, nil
	}
}
