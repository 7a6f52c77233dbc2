// Command admin is the operator CLI: it drives the server's admin HTTP
// endpoints to list, reset, export and import levels.
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "reset":
			resetCmd(os.Args[2:])
			return
		case "export":
			exportCmd(os.Args[2:])
			return
		case "import":
			importCmd(os.Args[2:])
			return
		case "levels":
			levelsCmd(os.Args[2:])
			return
		}
	}
	levelsCmd(os.Args[1:])
}

func baseURL(fs *flag.FlagSet) *string {
	return fs.String("url", "http://127.0.0.1:42666", "server base url")
}

func endpoint(base, path string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/") + path
}

func levelsCmd(args []string) {
	fs := flag.NewFlagSet("levels", flag.ExitOnError)
	base := baseURL(fs)
	_ = fs.Parse(args)

	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(endpoint(*base, "/admin/v1/levels"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}

func resetCmd(args []string) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	base := baseURL(fs)
	level := fs.String("level", "", "level to reset")
	_ = fs.Parse(args)
	if *level == "" {
		fmt.Fprintln(os.Stderr, "missing -level")
		os.Exit(2)
	}

	u := endpoint(*base, "/admin/v1/reset") + "?level=" + url.QueryEscape(*level)
	req, _ := http.NewRequest(http.MethodPost, u, nil)
	cl := &http.Client{Timeout: 10 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}

func exportCmd(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	base := baseURL(fs)
	level := fs.String("level", "", "level to export")
	out := fs.String("out", "", "output file (default <level>.rwlevel)")
	_ = fs.Parse(args)
	if *level == "" {
		fmt.Fprintln(os.Stderr, "missing -level")
		os.Exit(2)
	}
	path := *out
	if path == "" {
		path = *level + ".rwlevel"
	}

	u := endpoint(*base, "/admin/v1/export") + "?level=" + url.QueryEscape(*level)
	cl := &http.Client{Timeout: 30 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintln(os.Stderr, strings.TrimSpace(string(b)))
		os.Exit(1)
	}
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "create:", err)
		os.Exit(1)
	}
	defer f.Close()
	n, err := io.Copy(f, resp.Body)
	if err != nil {
		fmt.Fprintln(os.Stderr, "write:", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s (%d bytes)\n", path, n)
}

func importCmd(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	base := baseURL(fs)
	file := fs.String("file", "", "archive file to import")
	_ = fs.Parse(args)
	if *file == "" {
		fmt.Fprintln(os.Stderr, "missing -file")
		os.Exit(2)
	}

	f, err := os.Open(*file)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer f.Close()

	req, _ := http.NewRequest(http.MethodPost, endpoint(*base, "/admin/v1/import"), f)
	req.Header.Set("Content-Type", "application/zstd")
	cl := &http.Client{Timeout: 30 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}
