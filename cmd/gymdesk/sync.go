package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"text/tabwriter"
	"time"

	web "gymdesk/internal/adapters/http"
	"gymdesk/internal/adapters/metrics"
	"gymdesk/internal/application/orchestrators"
	domainOutbox "gymdesk/internal/domain/outbox"
)

const syncListLimit = 100

func runSync(ctx context.Context, d *desk, args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "pending":
			entries, err := d.processor.Pending(ctx, syncListLimit)
			if err != nil {
				return err
			}
			printEntries(d, entries)
			return nil
		case "failed":
			entries, err := d.processor.Failed(ctx, syncListLimit)
			if err != nil {
				return err
			}
			printEntries(d, entries)
			return nil
		case "retry":
			if len(args) != 2 {
				return errors.New("usage: gymdesk sync retry <entry-id>")
			}
			if err := d.processor.ProcessSingle(ctx, args[1]); err != nil {
				return err
			}
			fmt.Fprintln(d.out, "Retried")
			return nil
		case "abandon":
			if len(args) != 2 {
				return errors.New("usage: gymdesk sync abandon <entry-id>")
			}
			if err := d.processor.AbandonEntry(ctx, args[1]); err != nil {
				return err
			}
			fmt.Fprintln(d.out, "Abandoned")
			return nil
		}
	}

	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	watch := fs.Bool("watch", false, "keep syncing every GYMDESK_SYNC_INTERVAL until interrupted")
	metricsAddr := fs.String("metrics-addr", "", "serve metrics and outbox controls on this address while watching (e.g. 127.0.0.1:9090)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := d.processor.ProcessPending(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(d.out, "Synced %d, retrying %d, failed %d, waiting %d\n", res.Succeeded, res.Retrying, res.Failed, res.Deferred)
	if !*watch {
		return nil
	}
	return watchSync(ctx, d, *metricsAddr)
}

// watchSync runs the background worker until ctx is cancelled or the session expires.
func watchSync(ctx context.Context, d *desk, metricsAddr string) error {
	if metricsAddr != "" {
		ops := web.NewOpsMux(web.OpsConfig{Metrics: metrics.Handler(), Outbox: d.processor})
		srv := &http.Server{Addr: metricsAddr, Handler: ops, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics_server_failed", "error", err.Error())
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		fmt.Fprintf(d.out, "Serving /metrics, /healthz and /outbox on %s\n", metricsAddr)
	}

	stopCh := make(chan struct{})
	done := orchestrators.StartBackgroundWorker(d.processor, d.cfg.SyncInterval, stopCh)
	fmt.Fprintf(d.out, "Watching every %s, Ctrl-C to stop\n", d.cfg.SyncInterval)

	select {
	case <-ctx.Done():
		close(stopCh)
		<-done
		return nil
	case <-done:
		return errNotLoggedIn
	}
}

func printEntries(d *desk, entries []domainOutbox.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(d.out, "Nothing queued")
		return
	}
	tw := tabwriter.NewWriter(d.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tWHAT\tSTATUS\tATTEMPTS\tERROR")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%s\n", e.ID, e.CreatedAt.Local().Format("2006-01-02 15:04"),
			describeEntry(e), e.Status, e.Attempts, e.MaxAttempts, e.ErrorMessage)
	}
	tw.Flush()
}

func describeEntry(e domainOutbox.Entry) string {
	switch e.ActionType {
	case domainOutbox.ActionTypeAPISync:
		var p domainOutbox.SyncPayload
		if err := json.Unmarshal([]byte(e.Payload), &p); err == nil {
			return fmt.Sprintf("%s %s %s", p.Op, p.Resource, p.EntityID)
		}
	case domainOutbox.ActionTypePaymentReceipt:
		var p domainOutbox.ReceiptPayload
		if err := json.Unmarshal([]byte(e.Payload), &p); err == nil {
			return fmt.Sprintf("receipt %s to %s", p.PaymentID, p.To)
		}
	}
	return e.ActionType
}
