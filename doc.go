// Package arr is the request core shared by clients of Radarr, Sonarr,
// Lidarr and download-queue services such as SABnzbd and Transmission.
//
// A Client is built from a Profile describing where the service lives and
// how to authenticate. It keeps one pooled HTTP session, retries transient
// failures with exponential backoff and reports every call as a Result
// instead of an error:
//
//	client, err := arr.New(arr.Profile{
//		Name:       "radarr",
//		Host:       "localhost",
//		Port:       7878,
//		APIVersion: "api/v3",
//		Credential: os.Getenv("RADARR_API_KEY"),
//	})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	res := client.Execute(ctx, arr.Request{Endpoint: "movie/lookup?term=alien"})
//	if !res.OK() {
//		log.Printf("lookup failed: %s", res.Message())
//	}
//
// Connection failures, timeouts and 500/502/503/504 responses are retried up
// to Profile.MaxRetries times, waiting BackoffBase, 2*BackoffBase, and so on
// between attempts. Other 4xx and 5xx responses end the call at once.
//
// Logging and metrics are pluggable through WithLogger and WithMetrics; see
// the observability package for slog and Prometheus implementations.
package arr
