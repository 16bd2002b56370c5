package main

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"regportal/internal/apiclient"
	"regportal/internal/config"
	"regportal/internal/localstore"
	"regportal/internal/notify"
	"regportal/internal/session"
	"regportal/internal/store"
)

// app is what every subcommand shares: config, logging, the device store,
// the admin session and the API client authenticated by it.
type app struct {
	apiURL  string
	profile string

	cfg   config.Portal
	log   *logrus.Logger
	out   io.Writer
	reg   *prometheus.Registry
	store localstore.Store
	redis *store.Redis
	sess  *session.Session
	api   *apiclient.Client
	notes *notify.Center
}

func (a *app) init(cmd *cobra.Command) error {
	config.LoadDotEnv()
	a.cfg = config.LoadPortal()
	if a.apiURL != "" {
		a.cfg.APIBaseURL = a.apiURL
	}
	if a.profile != "" {
		a.cfg.Profile = a.profile
	}
	a.log = config.NewLogger(a.cfg.Env, a.cfg.LogLevel)
	a.out = cmd.OutOrStdout()

	switch a.cfg.StoreBackend {
	case "redis":
		r, err := store.OpenRedis(cmd.Context(), a.cfg.RedisAddr)
		if err != nil {
			return err
		}
		a.redis = r
		a.store = localstore.NewRedisStore(a.redis.Client, "regportal:"+a.cfg.Profile)
	case "file":
		fs, err := localstore.NewFileStore(a.cfg.StateDir, a.cfg.Profile, a.log)
		if err != nil {
			return err
		}
		a.store = fs
	default:
		return errors.Errorf("unknown PORTAL_STORE %q", a.cfg.StoreBackend)
	}

	a.reg = prometheus.NewRegistry()
	a.reg.MustRegister(collectors.NewGoCollector())

	a.sess = session.New(a.store, a.log)
	if err := a.sess.Load(cmd.Context()); err != nil {
		return err
	}
	a.sess.OnInvalidate(func(r session.Reason) {
		if r != session.ReasonLogout {
			fmt.Fprintf(cmd.ErrOrStderr(), "Session ended (%s). Sign in again with: portal admin login\n", r)
		}
	})
	a.api = apiclient.New(a.cfg.APIBaseURL,
		apiclient.WithAuth(a.sess),
		apiclient.WithMetrics(apiclient.NewMetrics(a.reg)),
		apiclient.WithLogger(a.log),
	)
	a.notes = notify.NewCenter(func(n notify.Notification) {
		fmt.Fprintf(a.out, "[%s] %s\n", n.Kind, n.Message)
	})
	return nil
}

func (a *app) close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
