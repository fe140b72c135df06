package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portfolio-backend/pkg/contactclient"
	"portfolio-backend/pkg/logger"
	"portfolio-backend/pkg/validation"

	"github.com/spf13/cobra"
)

const defaultEndpoint = "http://localhost:8080/v1/contact"

var (
	errInvalidForm      = errors.New("the form has invalid fields")
	errSubmissionFailed = errors.New("the message was not sent")
)

type options struct {
	endpoint string
	name     string
	email    string
	subject  string
	message  string
	attach   []string
	archives bool
	timeout  time.Duration
	logLevel string
}

// Run executes the contact CLI and returns the process exit code
func Run(args []string, out, errw io.Writer) int {
	root := newRootCommand(out, errw)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errw)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(errw, "Error:", err)
		return 1
	}
	return 0
}

func newRootCommand(out, errw io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "contact",
		Short:         "Send messages through the portfolio contact endpoint",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetOutput(errw, opts.logLevel)
		},
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "error", "log level written to stderr")

	root.AddCommand(newSendCommand(opts, out), newValidateCommand(opts, out))
	return root
}

func addFieldFlags(cmd *cobra.Command, opts *options) {
	f := cmd.Flags()
	f.StringVar(&opts.name, "name", "", "your name (2-50 characters)")
	f.StringVar(&opts.email, "email", "", "your email address")
	f.StringVar(&opts.subject, "subject", "", "subject (5-100 characters)")
	f.StringVar(&opts.message, "message", "", "message (10-1000 characters)")
}

func newSendCommand(opts *options, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Validate the form, attach files and submit it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSend(ctx, opts, out)
		},
	}
	addFieldFlags(cmd, opts)
	f := cmd.Flags()
	f.StringVar(&opts.endpoint, "endpoint", defaultEndpoint, "contact endpoint URL")
	f.StringArrayVar(&opts.attach, "attach", nil, "file to attach, repeatable")
	f.BoolVar(&opts.archives, "archives", false, "also accept .zip and .rar files")
	f.DurationVar(&opts.timeout, "timeout", contactclient.DefaultTimeout, "request timeout")
	return cmd
}

func newValidateCommand(opts *options, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the form fields without sending anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			form := contactclient.NewForm(nil, nil)
			form.Set(opts.name, opts.email, opts.subject, opts.message)

			errs := validation.ValidateContact(validation.New(), form.Submission())
			if len(errs) > 0 {
				printFieldErrors(out, errs)
				return errInvalidForm
			}
			fmt.Fprintln(out, "All fields are valid.")
			return nil
		},
	}
	addFieldFlags(cmd, opts)
	return cmd
}

func runSend(ctx context.Context, opts *options, out io.Writer) error {
	notifier := contactclient.NotifierFunc(func(n contactclient.Notification) {
		fmt.Fprintf(out, "[%s] %s: %s\n", n.Level, n.Title, n.Description)
	})

	collectorOpts := []contactclient.CollectorOption{contactclient.WithCollectorNotifier(notifier)}
	if opts.archives {
		collectorOpts = append(collectorOpts, contactclient.WithArchives())
	}
	status := contactclient.NewStatus(
		contactclient.WithDismissDelays(0, 0),
		contactclient.WithStateListener(func(from, to contactclient.State) {
			fmt.Fprintf(out, "status: %s -> %s\n", from, to)
		}),
	)
	form := contactclient.NewForm(contactclient.NewCollector(collectorOpts...), status)
	form.Set(opts.name, opts.email, opts.subject, opts.message)

	// Rejected files are reported by the notifier; the rest still go out
	for _, path := range opts.attach {
		_, _ = form.Attachments.AddFile(path)
	}

	client := contactclient.New(opts.endpoint,
		contactclient.WithHTTPClient(&http.Client{Timeout: opts.timeout}),
		contactclient.WithNotifier(notifier),
	)

	result, err := client.Submit(ctx, form)
	var verr *contactclient.ValidationError
	switch {
	case errors.As(err, &verr):
		printFieldErrors(out, verr.Fields)
		return errInvalidForm
	case err != nil:
		return err
	}

	if result.State != contactclient.StateSuccess {
		fmt.Fprintln(out, result.ErrorMessage)
		if result.ErrorDetail != "" {
			fmt.Fprintln(out, "  details:", result.ErrorDetail)
		}
		return errSubmissionFailed
	}

	fmt.Fprintf(out, "Message from %s sent with %d attachment(s).\n", result.RecipientName, result.AttachmentCount)
	if !result.ConfirmationSent {
		fmt.Fprintln(out, "The confirmation email could not be delivered.")
	}
	return nil
}

func printFieldErrors(out io.Writer, errs validation.FieldErrors) {
	for _, field := range errs.Fields() {
		fmt.Fprintf(out, "  %s: %s\n", field, errs[field])
	}
}
