package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/launchmena/catalogd/config"
	"github.com/launchmena/catalogd/internal/adminapi"
	"github.com/launchmena/catalogd/internal/app"
	"github.com/launchmena/catalogd/internal/publicapi"
	"github.com/launchmena/catalogd/internal/webserver"
)

var (
	BuildVersion = "dev"

	h               = flag.Bool("h", false, "help usage")
	showVer         = flag.Bool("v", false, "show version")
	conffile        = flag.String("c", "", "config yaml file")
	checkContent    = flag.Bool("check", false, "print the content consistency report and exit")
	clearRateLimits = flag.Bool("clear-ratelimits", false, "remove every login rate limit record and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(BuildVersion)
		return
	}
	if *h {
		flag.Usage()
		return
	}

	cfg, err := config.LoadConfig(*conffile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	application := app.NewApplication(cfg)
	if err := application.Init(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}

	if *checkContent || *clearRateLimits {
		var code int
		if *checkContent {
			code = runCheck(application)
		} else {
			code = runClearRateLimits(application)
		}
		application.Release()
		os.Exit(code)
	}

	application.StartScheduler()

	webserver.Init(application)
	adminapi.Init()
	publicapi.Init()

	err = webserver.Listen()
	application.Release()
	if err != nil {
		fmt.Fprintf(os.Stderr, "web server stopped: %v\n", err)
		os.Exit(1)
	}
}

func runCheck(a *app.Application) int {
	report, err := a.RunConsistencyCheck(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "consistency check: %v\n", err)
		return 1
	}
	fmt.Printf("manifest entries: %d, product directories: %d\n", report.Listed, report.OnDisk)
	for _, f := range report.Findings() {
		fmt.Println(" -", f)
	}
	if !report.OK() {
		return 2
	}
	fmt.Println("content store is consistent")
	return 0
}

func runClearRateLimits(a *app.Application) int {
	n, err := a.Limiter().Clear(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "clear rate limits: %v\n", err)
		return 1
	}
	fmt.Printf("removed %d rate limit records\n", n)
	return 0
}
