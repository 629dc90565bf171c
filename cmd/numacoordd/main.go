// Copyright 2019 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// numacoordd is the shepherd daemon: it creates the shared registry, holds
// it open for the lifetime of a co-located set of applications, and reacts
// to signals the way the host library's own shmem-shepherd helper does --
// SIGUSR1 dumps per-node occupancy, SIGUSR2 clears task counters, SIGINT and
// SIGTERM tear the registry down and unlink it.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	logger "github.com/intel/numa-coordinator/pkg/log"
	"github.com/intel/numa-coordinator/pkg/metrics"
	"github.com/intel/numa-coordinator/pkg/nodeconf"
	"github.com/intel/numa-coordinator/pkg/nodemask"
	"github.com/intel/numa-coordinator/pkg/session"
)

var log = logger.Get("numacoordd")

func printOccupancy(s *session.Session) {
	var b strings.Builder
	fmt.Fprintf(&b, "OpenMP task information:\n")
	for i := 0; i < s.NumNodes(); i++ {
		fmt.Fprintf(&b, "\t[%d] %d\n", i, s.NumTasks(nodemask.NodeID(i), true))
	}
	fmt.Print(b.String())
}

func main() {
	optPath := flag.String("path", "", "shared region path (default: /dev/shm/omp_numa)")
	optNumaAware := flag.Bool("numa-aware", false, "enable NUMA-aware node reuse across map/cleanup cycles")
	optMetricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address (empty disables)")
	logger.InstallFlags()
	flag.Parse()

	numaAware := *optNumaAware
	if cfg, err := nodeconf.LoadFromEnviron(); err == nil && cfg.NumaAware {
		numaAware = true
	}

	sess, err := session.Open(session.Options{
		Shepherd:  true,
		Path:      *optPath,
		NumaAware: numaAware,
	})
	if err != nil {
		log.Fatal("failed to open registry: %v", err)
	}
	log.Info("numacoordd starting: %d nodes, %d processors", sess.NumNodes(), sess.NumProcs())

	if *optMetricsAddr != "" {
		gatherer := metrics.NewGatherer(sess.Snapshot)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: *optMetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server stopped: %v", err)
			}
		}()
	}

	sigPrint := make(chan os.Signal, 1)
	sigClear := make(chan os.Signal, 1)
	sigStop := make(chan os.Signal, 1)
	signal.Notify(sigPrint, syscall.SIGUSR1)
	signal.Notify(sigClear, syscall.SIGUSR2)
	signal.Notify(sigStop, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sigPrint:
			printOccupancy(sess)
		case <-sigClear:
			if err := sess.ClearCounters(); err != nil {
				log.Error("failed to clear counters: %v", err)
			}
		case <-sigStop:
			if err := sess.Close(); err != nil {
				log.Error("failed to tear down registry: %v", err)
			}
			return
		}
	}
}
