package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	klingkit "github.com/MrEthical07/klingkit"
	"github.com/MrEthical07/klingkit/metrics/export/prometheus"
)

// call describes one request for display and performs it.
type call struct {
	op   klingkit.Operation
	opts klingkit.CallOptions
	do   func(ctx context.Context) (*klingkit.Response, error)
}

func newFlagSet(name string, e env) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

func runCreateElement(ctx context.Context, e env, args []string) int {
	var (
		cf          clientFlags
		req         klingkit.CreateElementRequest
		referImages stringList
		tagIDs      stringList
	)
	fs := newFlagSet("create-element", e)
	cf.register(fs)
	fs.StringVar(&req.ElementName, "element-name", "", "element name (required)")
	fs.StringVar(&req.ElementDescription, "element-description", "", "element description")
	fs.StringVar(&req.FrontalImage, "frontal-image", "", "frontal image URL (required)")
	fs.Var(&referImages, "refer-images", "reference image URLs, repeatable or comma-separated")
	fs.Var(&tagIDs, "tag-ids", "tag ids, repeatable or comma-separated")
	if _, code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}

	req.ReferImages = klingkit.ReferencesFromURLs(referImages)
	req.Tags = klingkit.TagsFromIDs(tagIDs)
	if err := req.Validate(); err != nil {
		return usageError(e.stderr, "%v", err)
	}

	client, code := openClient(e, &cf)
	if client == nil {
		return code
	}
	return execute(ctx, e, client, &cf, call{
		op:   klingkit.OpCreateElement,
		opts: klingkit.CallOptions{Body: req},
		do: func(ctx context.Context) (*klingkit.Response, error) {
			return client.CreateElement(ctx, req)
		},
	})
}

func runCreateVoice(ctx context.Context, e env, args []string) int {
	var (
		cf  clientFlags
		req klingkit.CreateVoiceRequest
	)
	fs := newFlagSet("create-voice", e)
	cf.register(fs)
	fs.StringVar(&req.Model, "model", klingkit.DefaultVoiceModel, "model the voice is registered against")
	fs.StringVar(&req.VoiceName, "voice-name", "", "voice name (required)")
	fs.StringVar(&req.VoiceURL, "voice-url", "", "URL of the voice sample (required)")
	fs.StringVar(&req.CallbackURL, "callback-url", "", "URL notified when the task completes")
	fs.StringVar(&req.ExternalTaskID, "external-task-id", "", `caller task id; "auto" generates one`)
	if _, code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}

	if req.ExternalTaskID == "auto" {
		req.ExternalTaskID = klingkit.NewExternalTaskID()
	}
	if err := req.Validate(); err != nil {
		return usageError(e.stderr, "%v", err)
	}

	client, code := openClient(e, &cf)
	if client == nil {
		return code
	}
	return execute(ctx, e, client, &cf, call{
		op:   klingkit.OpCreateVoice,
		opts: klingkit.CallOptions{Body: req},
		do: func(ctx context.Context) (*klingkit.Response, error) {
			return client.CreateVoice(ctx, req)
		},
	})
}

func runQuery(ctx context.Context, e env, args []string) int {
	var (
		cf        clientFlags
		endpoint  string
		voiceID   string
		elementID string
		list      klingkit.ListOptions
	)
	fs := newFlagSet("query", e)
	cf.register(fs)
	fs.StringVar(&endpoint, "endpoint", "", "operation to call, see the operations command (required)")
	fs.StringVar(&voiceID, "voice-id", "", "voice id for custom-voices or delete-voices")
	fs.StringVar(&elementID, "element-id", "", "element id for delete-elements")
	fs.IntVar(&list.PageNum, "page-num", 0, "page number for list endpoints")
	fs.IntVar(&list.PageSize, "page-size", 0, "page size for list endpoints")
	if _, code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}

	c, err := queryCall(endpoint, voiceID, elementID, list)
	if err != nil {
		return usageError(e.stderr, "%v", err)
	}

	client, code := openClient(e, &cf)
	if client == nil {
		return code
	}
	c.do = bindQuery(client, c.op, voiceID, elementID, list)
	return execute(ctx, e, client, &cf, c)
}

// queryCall validates the query flags and describes the request without a client.
func queryCall(endpoint, voiceID, elementID string, list klingkit.ListOptions) (call, error) {
	if endpoint == "" {
		return call{}, errors.New("--endpoint is required")
	}
	op, err := klingkit.ParseOperation(endpoint)
	if err != nil {
		return call{}, err
	}
	if op == klingkit.OpCreateElement || op == klingkit.OpCreateVoice {
		return call{}, fmt.Errorf("%s has its own command", op)
	}
	if voiceID != "" && op != klingkit.OpCustomVoices && op != klingkit.OpDeleteVoices {
		return call{}, fmt.Errorf("--voice-id does not apply to %s", op)
	}
	if elementID != "" && op != klingkit.OpDeleteElements {
		return call{}, fmt.Errorf("--element-id does not apply to %s", op)
	}

	c := call{op: op}
	switch op {
	case klingkit.OpDeleteElements:
		if elementID == "" {
			return call{}, errors.New("--element-id is required for delete-elements")
		}
		c.opts.Body = map[string]string{"element_id": elementID}
	case klingkit.OpDeleteVoices:
		if voiceID == "" {
			return call{}, errors.New("--voice-id is required for delete-voices")
		}
		c.opts.Body = map[string]string{"voice_id": voiceID}
	case klingkit.OpCustomVoices:
		if voiceID != "" {
			c.opts.ID = voiceID
			return c, nil
		}
		c.opts.Query = list.Values()
	default:
		c.opts.Query = list.Values()
	}
	return c, nil
}

func bindQuery(client *klingkit.Client, op klingkit.Operation, voiceID, elementID string, list klingkit.ListOptions) func(context.Context) (*klingkit.Response, error) {
	return func(ctx context.Context) (*klingkit.Response, error) {
		switch op {
		case klingkit.OpCustomElements:
			return client.ListCustomElements(ctx, list)
		case klingkit.OpPresetsElements:
			return client.ListPresetElements(ctx, list)
		case klingkit.OpCustomVoices:
			if voiceID != "" {
				return client.GetCustomVoice(ctx, voiceID)
			}
			return client.ListCustomVoices(ctx, list)
		case klingkit.OpPresetsVoices:
			return client.ListPresetVoices(ctx, list)
		case klingkit.OpDeleteElements:
			return client.DeleteElement(ctx, elementID)
		case klingkit.OpDeleteVoices:
			return client.DeleteVoice(ctx, voiceID)
		default:
			return nil, fmt.Errorf("%w: %s", klingkit.ErrUnknownOperation, op)
		}
	}
}

func openClient(e env, cf *clientFlags) (*klingkit.Client, int) {
	client, err := cf.client(e)
	switch {
	case err == nil:
		return client, exitOK
	case errors.Is(err, errMissingCredentials), errors.Is(err, klingkit.ErrInvalidCredential):
		fmt.Fprintf(e.stderr, "error: %v\n", err)
		return nil, exitFail
	default:
		return nil, usageError(e.stderr, "%v", err)
	}
}

// execute prints the request, performs it and reports the outcome.
func execute(ctx context.Context, e env, client *klingkit.Client, cf *clientFlags, c call) int {
	route, err := klingkit.RouteFor(c.op)
	if err != nil {
		return usageError(e.stderr, "%v", err)
	}
	target, err := client.URL(c.op, c.opts)
	if err != nil {
		return usageError(e.stderr, "%v", err)
	}

	fmt.Fprintf(e.stdout, "Request: %s\n", route.Description)
	fmt.Fprintf(e.stdout, "  Method: %s\n", route.Method)
	fmt.Fprintf(e.stdout, "  URL: %s\n", target)
	if c.opts.Body != nil {
		body, _ := json.MarshalIndent(c.opts.Body, "  ", "  ")
		fmt.Fprintf(e.stdout, "  Body: %s\n", body)
	}
	fmt.Fprintln(e.stdout)

	resp, err := c.do(ctx)
	code := report(e.stdout, resp, err)

	if cf.metrics {
		if _, werr := prometheus.NewPrometheusExporter(client).WriteTo(e.stderr); werr != nil {
			fmt.Fprintf(e.stderr, "write metrics: %v\n", werr)
		}
	}
	if cf.otel {
		if werr := writeOTelMetrics(context.WithoutCancel(ctx), e.stderr, client); werr != nil {
			fmt.Fprintf(e.stderr, "collect metrics: %v\n", werr)
		}
	}
	return code
}

func report(w io.Writer, resp *klingkit.Response, err error) int {
	if resp != nil {
		fmt.Fprintf(w, "Response status: %d\n", resp.StatusCode)
		fmt.Fprintln(w, "Response body:")
		fmt.Fprintln(w, resp.PrettyBody())
	}

	var (
		apiErr       *klingkit.APIError
		malformedErr *klingkit.MalformedResponseError
	)
	switch {
	case err == nil:
		fmt.Fprintln(w, "\nOK: request succeeded")
		res := resp.Result()
		printField(w, "task_id", res.TaskID)
		printField(w, "task_status", res.TaskStatus)
		printField(w, "element_id", res.ElementID)
		printField(w, "voice_id", res.VoiceID)
		return exitOK
	case errors.As(err, &apiErr):
		code := "n/a"
		if apiErr.Code >= 0 {
			code = strconv.Itoa(apiErr.Code)
		}
		fmt.Fprintf(w, "\nFAILED: HTTP %d, code=%s, message=%s\n", apiErr.StatusCode, code, apiErr.Message)
	case errors.As(err, &malformedErr):
		fmt.Fprintf(w, "\nFAILED: response is not a JSON envelope (HTTP %d); raw payload above\n", malformedErr.StatusCode)
	case errors.Is(err, klingkit.ErrTimeout):
		fmt.Fprintf(w, "\nFAILED: request timed out: %v\n", err)
	case errors.Is(err, klingkit.ErrTransport):
		fmt.Fprintf(w, "\nFAILED: transport error: %v\n", err)
	default:
		fmt.Fprintf(w, "\nFAILED: %v\n", err)
	}
	return exitFail
}

func printField(w io.Writer, name, value string) {
	if value != "" {
		fmt.Fprintf(w, "  %s: %s\n", name, value)
	}
}
