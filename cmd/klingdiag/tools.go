package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	klingkit "github.com/MrEthical07/klingkit"
	"github.com/MrEthical07/klingkit/catalog"
	"github.com/MrEthical07/klingkit/jwt"
)

func runToken(_ context.Context, e env, args []string) int {
	var (
		ak, sk     string
		at         int64
		showClaims bool
	)
	fs := newFlagSet("token", e)
	fs.StringVar(&ak, "ak", "", "access key (default KLING_AK)")
	fs.StringVar(&sk, "sk", "", "secret key (default KLING_SK)")
	fs.Int64Var(&at, "now", 0, "issue time as unix seconds (default current time)")
	fs.BoolVar(&showClaims, "claims", false, "also print the issued claims")
	if _, code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}

	ak = firstNonEmpty(ak, e.getenv("KLING_AK"))
	sk = firstNonEmpty(sk, e.getenv("KLING_SK"))
	if ak == "" || sk == "" {
		fmt.Fprintln(e.stderr, "error: missing credentials: set --ak/--sk or KLING_AK/KLING_SK")
		return exitFail
	}

	now := time.Now()
	if at != 0 {
		now = time.Unix(at, 0)
	}
	token, err := jwt.Issue(ak, sk, now)
	if err != nil {
		fmt.Fprintf(e.stderr, "error: %v\n", err)
		return exitFail
	}

	fmt.Fprintln(e.stdout, token)
	if showClaims {
		_, claims, err := jwt.Decode(token)
		if err != nil {
			fmt.Fprintf(e.stderr, "error: %v\n", err)
			return exitFail
		}
		printClaims(e, claims)
	}
	return exitOK
}

func runDecode(_ context.Context, e env, args []string) int {
	var (
		secret string
		at     int64
	)
	fs := newFlagSet("decode", e)
	fs.StringVar(&secret, "sk", "", "secret key; when set the signature and validity window are checked")
	fs.Int64Var(&at, "at", 0, "verification time as unix seconds (default current time)")
	rest, code, ok := parseFlags(fs, args, 1)
	if !ok {
		return code
	}
	if len(rest) != 1 {
		return usageError(e.stderr, "decode takes exactly one token argument")
	}
	token := rest[0]

	header, claims, err := jwt.Decode(token)
	if err != nil {
		fmt.Fprintf(e.stderr, "error: %v\n", err)
		return exitFail
	}

	raw, _ := json.MarshalIndent(header, "", "  ")
	fmt.Fprintf(e.stdout, "header: %s\n", raw)
	printClaims(e, claims)

	if secret == "" {
		return exitOK
	}
	when := time.Now()
	if at != 0 {
		when = time.Unix(at, 0)
	}
	if _, err := jwt.Verify(token, secret, when); err != nil {
		fmt.Fprintf(e.stdout, "verification: FAILED at %d: %v\n", when.Unix(), err)
		return exitFail
	}
	fmt.Fprintf(e.stdout, "verification: OK at %d\n", when.Unix())
	return exitOK
}

func printClaims(e env, claims *jwt.Claims) {
	fmt.Fprintf(e.stdout, "iss: %s\n", claims.Issuer)
	if claims.NotBefore != nil {
		fmt.Fprintf(e.stdout, "nbf: %d (%s)\n", claims.NotBefore.Unix(), claims.NotBefore.UTC().Format(time.RFC3339))
	}
	if claims.ExpiresAt != nil {
		fmt.Fprintf(e.stdout, "exp: %d (%s)\n", claims.ExpiresAt.Unix(), claims.ExpiresAt.UTC().Format(time.RFC3339))
	}
}

func runOperations(_ context.Context, e env, args []string) int {
	fs := newFlagSet("operations", e)
	if _, code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}

	for _, op := range klingkit.Operations() {
		route, err := klingkit.RouteFor(op)
		if err != nil {
			continue
		}
		path := route.Path
		if route.AcceptsID {
			path += "[/{id}]"
		}
		fmt.Fprintf(e.stdout, "%-17s %-6s %-38s %s\n", op, route.Method, path, route.Description)
	}
	return exitOK
}

func runClassify(_ context.Context, e env, args []string) int {
	var in, out string
	fs := newFlagSet("classify", e)
	fs.StringVar(&in, "in", "", `model list JSON, {"data":[{"id":...}]} (required)`)
	fs.StringVar(&out, "out", "", "also write the report to this file")
	if _, code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}
	if in == "" {
		return usageError(e.stderr, "--in is required")
	}

	f, err := os.Open(in)
	if err != nil {
		fmt.Fprintf(e.stderr, "error: %v\n", err)
		return exitFail
	}
	ids, err := catalog.LoadModelList(f)
	_ = f.Close()
	if err != nil {
		fmt.Fprintf(e.stderr, "error: %s: %v\n", in, err)
		return exitFail
	}

	categories := catalog.Classify(ids, catalog.DefaultRules())
	if err := catalog.WriteReport(e.stdout, categories); err != nil {
		fmt.Fprintf(e.stderr, "error: %v\n", err)
		return exitFail
	}

	if out != "" {
		if err := writeReportFile(out, categories); err != nil {
			fmt.Fprintf(e.stderr, "error: %v\n", err)
			return exitFail
		}
		fmt.Fprintf(e.stdout, "\nreport saved to %s\n", out)
	}
	return exitOK
}

func writeReportFile(path string, categories []catalog.Category) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := catalog.WriteReport(f, categories); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
