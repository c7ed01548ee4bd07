// Package cluster assembles the host worker pool from a ClusterConfig,
// routes enqueued jobs to the right per-quality queue, and runs every host
// worker to completion.
package cluster

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mlsmithjr/wandarr-go/internal/config"
	"github.com/mlsmithjr/wandarr-go/internal/ffmpeg"
	"github.com/mlsmithjr/wandarr-go/internal/job"
	"github.com/mlsmithjr/wandarr-go/internal/mediainfo"
	"github.com/mlsmithjr/wandarr-go/internal/runtimeopts"
	"github.com/mlsmithjr/wandarr-go/internal/statusbus"
	"github.com/mlsmithjr/wandarr-go/internal/statussink"
	"github.com/mlsmithjr/wandarr-go/internal/template"
)

// HostFilter decides whether a configured host should be considered at
// all, the seam behind the CLI's --hosts/-l selection.
type HostFilter func(hostName string) bool

// AllHosts is the default HostFilter: every enabled host participates.
func AllHosts(string) bool { return true }

// Prober probes a media file, producing the MediaInfo the scheduler and
// template layer need. Probing itself is out of this package's scope; the
// CLI supplies a concrete implementation (internal/probe's ffprobe wrapper).
type Prober interface {
	Probe(path string) (*mediainfo.MediaInfo, error)
}

// Cluster owns the per-quality job queues and the host worker pool built
// from them.
type Cluster struct {
	cfg    *config.ClusterConfig
	opts   runtimeopts.Options
	prober Prober
	bus    *statusbus.Bus
	sink   statussink.Sink

	queues map[string]*jobQueue
	hosts  []HostWorker
}

// New builds the host worker pool from cfg: one queue per distinct
// quality key across all enabled engines, and one HostWorker per
// (host, engine, quality) tuple whose type variant matches the host's
// configured type. Hosts failing their probe, or excluded by filter, are
// skipped entirely.
func New(ctx context.Context, cfg *config.ClusterConfig, opts runtimeopts.Options, prober Prober, sink statussink.Sink, filter HostFilter) (*Cluster, error) {
	if filter == nil {
		filter = AllHosts
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Cluster{
		cfg:    cfg,
		opts:   opts,
		prober: prober,
		bus:    statusbus.New(),
		sink:   sink,
		queues: make(map[string]*jobQueue),
	}

	driver := ffmpeg.NewDriver(cfg.FFmpegPath, os.TempDir())

	for name, h := range cfg.Hosts {
		if !h.Enabled || !filter(name) {
			continue
		}
		if len(h.Engines) == 0 {
			opts.Logger.Warn().Str("host", name).Msg("no engines defined, skipping")
			continue
		}

		// probed/reachable cache this host's single Probe() call across
		// every (engine,quality) triple below; a down host is detected
		// once and the rest of its triples are skipped immediately.
		var probed, reachable bool

	engines:
		for _, engineName := range h.Engines {
			engine := cfg.Engine(engineName)
			if engine == nil {
				opts.Logger.Warn().Str("host", name).Str("engine", engineName).Msg("engine not found, skipping")
				continue
			}

			for quality, videoCLI := range engine.Qualities {
				q, ok := c.queues[quality]
				if !ok {
					q = &jobQueue{}
					c.queues[quality] = q
				}

				b := base{
					hostname:    name,
					host:        h,
					queue:       q,
					bus:         c.bus,
					opts:        opts,
					videoCLI:    videoCLI,
					engineName:  engineName,
					qualityName: quality,
				}

				worker, err := newHostWorker(h.Type, b, driver, cfg, opts)
				if err != nil {
					opts.Logger.Warn().Str("host", name).Err(err).Msg("skipping host")
					continue
				}

				if h.Type != config.HostLocal {
					if !probed {
						probed = true
						reachable = worker.Probe(ctx)
						if !reachable {
							opts.Logger.Warn().Str("host", name).Msg("host not available, skipping")
						}
					}
					if !reachable {
						break engines
					}
				}

				c.hosts = append(c.hosts, worker)
			}
		}
	}

	return c, nil
}

func newHostWorker(t config.HostType, b base, driver *ffmpeg.Driver, cfg *config.ClusterConfig, opts runtimeopts.Options) (HostWorker, error) {
	switch t {
	case config.HostLocal:
		return NewLocalHost(b, driver), nil
	case config.HostMounted:
		return NewMountedHost(b, driver, opts.SSHPath), nil
	case config.HostStreaming:
		return NewStreamingHost(b, driver, opts.SSHPath, opts.SCPPath), nil
	case config.HostAgent:
		port := cfg.AgentPort
		if port == 0 {
			port = 9567
		}
		addr := fmt.Sprintf("%s:%d", b.host.Address, port)
		return NewAgentHost(b, addr, b.host.FFmpegPath), nil
	default:
		return nil, fmt.Errorf("unknown host type %q", t)
	}
}

// Enqueue probes sourcePath, resolves templateName, and routes the
// resulting job to the queue matching the template's video quality.
func (c *Cluster) Enqueue(sourcePath, templateName string) (*job.EncodeJob, error) {
	tmpl := c.cfg.GetTemplate(templateName)
	if tmpl == nil {
		return nil, fmt.Errorf("template %q not found", templateName)
	}

	media, err := c.prober.Probe(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("probing %s: %w", sourcePath, err)
	}

	j, err := job.New(sourcePath, media, tmpl)
	if err != nil {
		return nil, err
	}

	q, ok := c.queues[tmpl.Quality]
	if !ok {
		return nil, fmt.Errorf("quality %q has no matching host engine", tmpl.Quality)
	}
	q.push(j)
	return j, nil
}

// Run starts every host worker concurrently and blocks until all of their
// queues have drained, draining the status bus to the configured sink
// until then.
func (c *Cluster) Run(ctx context.Context) error {
	if len(c.hosts) == 0 {
		return fmt.Errorf("no hosts available in cluster")
	}

	sink := c.sink
	if sink == nil {
		sink = statussink.NullSink{}
	}

	var eg errgroup.Group
	for _, h := range c.hosts {
		h := h
		eg.Go(func() error {
			h.Run(ctx)
			return nil
		})
	}

	hostsDone := make(chan struct{})
	go func() {
		_ = eg.Wait()
		close(hostsDone)
	}()

	const drainPoll = 200 * time.Millisecond
	for {
		e, ok := c.bus.Get(drainPoll)
		if ok {
			sink.Update(e)
			continue
		}
		select {
		case <-hostsDone:
			// drain whatever trickled in between the last Get and hosts finishing
			for {
				e, ok := c.bus.Get(drainPoll)
				if !ok {
					return nil
				}
				sink.Update(e)
			}
		default:
		}
	}
}

// Terminate is reserved for future cooperative shutdown; cancel the
// context passed to Run to stop all host workers.
func (c *Cluster) Terminate() {}

// DumpStats returns every completed job across all host workers, the
// final run summary.
func (c *Cluster) DumpStats() []Completion {
	var all []Completion
	for _, h := range c.hosts {
		all = append(all, h.Completed()...)
	}
	return all
}

// Templates exposes the configured templates, used by CLI validation.
func (c *Cluster) Templates() map[string]*template.Template {
	return c.cfg.Templates
}

// FormatStats renders completions as a right-aligned "path (Nm Ns)" table,
// the original tool's end-of-run summary.
func FormatStats(w io.Writer, completions []Completion) {
	if len(completions) == 0 {
		return
	}
	maxWidth := 0
	for _, c := range completions {
		if len(c.SourcePath) > maxWidth {
			maxWidth = len(c.SourcePath)
		}
	}
	fmt.Fprintln(w, strings.Repeat("-", maxWidth+9))
	for _, c := range completions {
		mins := c.ElapsedSeconds / 60
		secs := c.ElapsedSeconds % 60
		fmt.Fprintf(w, "%*s  (%3dm %2ds)\n", maxWidth, c.SourcePath, mins, secs)
	}
}
