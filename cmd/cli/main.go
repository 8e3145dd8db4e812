package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hamed0406/healthalert/internal/alert"
)

func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}
	api = strings.TrimRight(api, "/")

	path := "/api/alerts"
	single := len(os.Args) > 1
	if single {
		path += "/" + os.Args[1]
	}

	req, err := http.NewRequest(http.MethodGet, api+path, nil)
	if err != nil {
		fmt.Println("Invalid API_BASE:", err)
		os.Exit(1)
	}
	if key := os.Getenv("API_KEY"); key != "" {
		req.Header.Set("X-API-Key", key)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Println("Error contacting API:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Println("API returned status:", resp.Status)
		os.Exit(1)
	}

	var alerts []alert.Status
	if single {
		var st alert.Status
		err = json.NewDecoder(resp.Body).Decode(&st)
		alerts = append(alerts, st)
	} else {
		err = json.NewDecoder(resp.Body).Decode(&alerts)
	}
	if err != nil {
		fmt.Println("Unexpected response:", err)
		os.Exit(1)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ALERT\tSITE\tTARGETS\tCYCLES\tLEVEL\tLAST EVENT")
	for _, a := range alerts {
		level, at := "-", "-"
		if a.LastEvent != nil {
			level = a.LastEvent.Level
			at = a.LastEvent.Raised.Local().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n", a.Name, a.Site, a.Targets, a.Cycles, level, at)
	}
	_ = tw.Flush()
}
