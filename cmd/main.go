package main

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/prebook/internal/cli"
	"github.com/okian/prebook/pkg/logger"
)

func main() {
	// Runtime gauges come from our own registry; drop the default collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	err := cli.Execute(context.Background())
	_ = logger.Sync()
	if err != nil {
		os.Stderr.WriteString("prebook: " + err.Error() + "\n")
		os.Exit(1)
	}
}
