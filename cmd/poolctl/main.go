// Command poolctl exercises the pool library end-to-end against either a
// real SSH endpoint or an in-memory fake, printing per-cycle progress and
// failures and a final statistics table. Grounded on cmd/ssh-test/main.go's
// flag-based tool and internal/tunnel/pool_stats.go's snapshot reporting.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/crypto/ssh"

	"connpool/internal/logger"
	"connpool/pool"
	"connpool/transport/sshconn"
)

func main() {
	var (
		host        = flag.String("host", "", "SSH server host:port to dial (required unless -fake)")
		user        = flag.String("user", "root", "SSH user")
		fake        = flag.Bool("fake", false, "use an in-memory fake connection instead of dialing real SSH")
		insecure    = flag.Bool("insecure", false, "skip host key verification (DANGEROUS, for demo use only)")
		knownHosts  = flag.String("known-hosts", "", "path to a known_hosts file (defaults to ~/.ssh/known_hosts)")
		maxConns    = flag.Int("max", 2, "admission cap for the bounded pool wrapper")
		cycles      = flag.Int("cycles", 10, "number of acquire/release cycles to run")
		dialTimeout = flag.Duration("dial-timeout", 10*time.Second, "per-connection dial timeout")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "poolctl: drive the keyed connection pool against a real or fake endpoint\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s -host host:port [options]\n\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -fake -cycles 50 -max 3\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -host example.com:22 -user deploy -max 4 -cycles 20\n", os.Args[0])
	}
	flag.Parse()

	if !*fake && *host == "" {
		fmt.Fprintln(os.Stderr, "Error: -host is required unless -fake is set")
		flag.Usage()
		os.Exit(1)
	}

	logger.Banner("poolctl — keyed connection pool demo")

	var demo demoPool
	var keys []pool.DefaultKey

	if *fake {
		fp, err := newFakeDemoPool(*maxConns)
		if err != nil {
			logger.Console.ErrorBox("Setup failed", err.Error(), nil)
			os.Exit(1)
		}
		demo = fp
		keys = fakeKeys(*cycles)
	} else {
		hostKeyCB, err := resolveHostKeyCallback(*insecure, *knownHosts)
		if err != nil {
			logger.Console.ErrorBox("Setup failed", err.Error(), []string{
				"pass -insecure for a quick demo without known_hosts",
				"or pass -known-hosts pointing at a file containing the server's key",
			})
			os.Exit(1)
		}

		factory, err := sshconn.NewFactory(
			sshconn.WithUser(*user),
			sshconn.WithDialTimeout(*dialTimeout),
			sshconn.WithHostKeyCallback(hostKeyCB),
		)
		if err != nil {
			logger.Console.ErrorBox("Setup failed", err.Error(), nil)
			os.Exit(1)
		}

		engine := pool.NewEngine[pool.DefaultKey, *sshconn.Conn](
			factory,
			pool.WithHealthChecker[pool.DefaultKey, *sshconn.Conn](sshconn.HealthCheck),
			pool.WithObserver[pool.DefaultKey, *sshconn.Conn](pool.ObserverFuncs[pool.DefaultKey, *sshconn.Conn]{
				Created: func(conn *sshconn.Conn, key pool.DefaultKey) {
					logger.Debug("created connection %s for %s", conn.ID, key)
				},
			}),
		)
		bp, err := pool.NewBoundedPool[pool.DefaultKey, *sshconn.Conn](engine, *maxConns)
		if err != nil {
			logger.Console.ErrorBox("Setup failed", err.Error(), nil)
			os.Exit(1)
		}

		demo = sshDemoPool{bp}
		keys = sshKeys(*host, *cycles)
	}

	runDemo(keys, demo)
}

// demoPool is the narrow surface runDemo needs. main picks the concrete
// connection type (a real SSH conn, or the in-memory fake) and wraps it in
// whichever of sshDemoPool/fakeDemoPool closes over it, so runDemo itself
// never needs to be generic over the connection type.
type demoPool interface {
	acquireAndRelease(ctx context.Context, key pool.DefaultKey) error
	stats() pool.BoundedStats
}

func runDemo(keys []pool.DefaultKey, p demoPool) {
	logger.Section("Running acquire/release cycles")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var succeeded, failed int
	start := time.Now()

	for i, key := range keys {
		if err := p.acquireAndRelease(ctx, key); err != nil {
			failed++
			logger.Error("cycle %d against %s failed: %v", i, key, err)
			continue
		}
		succeeded++
		logger.Console.ProgressBar(i+1, len(keys), 40)
	}

	elapsed := time.Since(start)
	s := p.stats()

	logger.Section("Results")
	logger.Console.Table(
		[]string{"metric", "value"},
		[][]string{
			{"cycles run", humanize.Comma(int64(len(keys)))},
			{"succeeded", humanize.Comma(int64(succeeded))},
			{"failed", humanize.Comma(int64(failed))},
			{"elapsed", elapsed.Round(time.Millisecond).String()},
			{"admitted now", humanize.Comma(int64(s.AcquiredCount))},
			{"max connections", humanize.Comma(int64(s.MaxConnections))},
			{"pending", humanize.Comma(int64(s.Pending))},
		},
	)

	if failed == 0 {
		logger.Console.SuccessBox("Done", fmt.Sprintf("all %s cycles completed cleanly", humanize.Comma(int64(succeeded))))
		return
	}
	logger.Console.ErrorBox("Completed with errors",
		fmt.Sprintf("%s of %s cycles failed", humanize.Comma(int64(failed)), humanize.Comma(int64(len(keys)))), nil)
	os.Exit(1)
}

// resolveHostKeyCallback honors -insecure, otherwise defers to
// sshconn.KnownHostsCallback.
func resolveHostKeyCallback(insecure bool, knownHosts string) (ssh.HostKeyCallback, error) {
	if insecure {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	return sshconn.KnownHostsCallback(knownHosts)
}

func sshKeys(host string, cycles int) []pool.DefaultKey {
	keys := make([]pool.DefaultKey, cycles)
	for i := range keys {
		keys[i] = pool.NewKey(host)
	}
	return keys
}

func fakeKeys(cycles int) []pool.DefaultKey {
	keys := make([]pool.DefaultKey, cycles)
	for i := range keys {
		keys[i] = pool.NewKey(fmt.Sprintf("fake-host-%d:22", i%3))
	}
	return keys
}

// sshDemoPool adapts a *pool.BoundedPool[pool.DefaultKey, *sshconn.Conn] to
// demoPool.
type sshDemoPool struct {
	bp *pool.BoundedPool[pool.DefaultKey, *sshconn.Conn]
}

func (d sshDemoPool) acquireAndRelease(ctx context.Context, key pool.DefaultKey) error {
	conn, err := d.bp.Acquire(ctx, key)
	if err != nil {
		return err
	}
	session, err := conn.NewSession()
	if err == nil {
		session.Close()
	}
	_, releaseErr := d.bp.Release(conn)
	if err != nil {
		return err
	}
	return releaseErr
}

func (d sshDemoPool) stats() pool.BoundedStats { return d.bp.Stats() }
