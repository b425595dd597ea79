// Package influxdb records Game Circle activity as time-series points.
//
// Every domain event (signup, game created, ownership toggled, ...) becomes
// one point in the "activity" measurement tagged with the event type and,
// where relevant, the action. Dashboards can then chart signups per day or
// ownership churn per game without touching SQLite.
//
// The package wraps influxdb-client-go v2 with connection checks, batching
// and an error callback for asynchronous write failures.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.SetOnError(func(err error) { logger.Warn("influx write failed", "error", err) })
//	client.WriteActivity("game.created", "", time.Now())
package influxdb
