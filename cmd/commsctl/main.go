// Command commsctl calls the platform APIs with credentials taken from the
// environment or a .env file.
//
// Usage:
//
//	commsctl balance
//	commsctl sms -from Acme -to +447700900000 -text "hello"
//	commsctl insight -number +447700900000 [-country GB]
//	commsctl verify -brand Acme -to +447700900000 [-channel sms]
//	commsctl token [-ttl 15m] [-sub alice]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alexbotov/commsdk/internal/config"
	"github.com/alexbotov/commsdk/internal/logging"
	"github.com/alexbotov/commsdk/pkg/auth"
	"github.com/alexbotov/commsdk/pkg/client"
	"go.uber.org/zap"
)

const usage = `usage: commsctl <command> [flags]

commands:
  balance   show the account balance
  sms       send a text message
  insight   look up a number
  verify    start a verification
  token     print an application JWT
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.Init(cfg.Log.Level, "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.Timeout+5*time.Second)
	defer cancel()

	if err := run(ctx, cfg, log, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		var nae *auth.NoAcceptableMethodError
		if errors.As(err, &nae) {
			log.Error("Missing credentials", zap.Strings("configured", nae.Available), zap.Strings("accepted", nae.Acceptable))
		} else {
			log.Error("Command failed", zap.String("command", os.Args[1]), zap.Error(err))
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, cmd string, args []string, out io.Writer) error {
	methods, err := cfg.Auth.Methods()
	if err != nil {
		return err
	}
	opts := []client.Option{client.WithLogger(log)}
	for _, m := range methods {
		opts = append(opts, client.WithAuthMethod(m))
	}
	c := client.NewClient(cfg.ClientConfig(), opts...)

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var result interface{}
	switch cmd {
	case "balance":
		if err := fs.Parse(args); err != nil {
			return err
		}
		result, err = c.GetBalance(ctx)

	case "sms":
		from := fs.String("from", "", "sender id or number")
		to := fs.String("to", "", "recipient in E.164")
		text := fs.String("text", "", "message body")
		unicode := fs.Bool("unicode", false, "send as unicode")
		if err := fs.Parse(args); err != nil {
			return err
		}
		req := &client.SMSRequest{From: *from, To: *to, Text: *text}
		if *unicode {
			req.Type = client.SMSTypeUnicode
		}
		result, err = c.SendSMS(ctx, req)

	case "insight":
		number := fs.String("number", "", "number in E.164")
		country := fs.String("country", "", "ISO country hint")
		if err := fs.Parse(args); err != nil {
			return err
		}
		result, err = c.BasicInsight(ctx, *number, *country)

	case "verify":
		brand := fs.String("brand", "", "brand shown to the user")
		to := fs.String("to", "", "recipient")
		channel := fs.String("channel", client.ChannelSMS, "sms, voice, email or whatsapp")
		if err := fs.Parse(args); err != nil {
			return err
		}
		result, err = c.StartVerification(ctx, &client.VerificationRequest{
			Brand:    *brand,
			Workflow: []client.WorkflowStep{{Channel: *channel, To: *to}},
		})

	case "token":
		ttl := fs.Duration("ttl", 0, "token lifetime, 0 for none")
		sub := fs.String("sub", "", "subject claim")
		if err := fs.Parse(args); err != nil {
			return err
		}
		j, lerr := auth.Lookup[*auth.JWT](c.Auth())
		if lerr != nil {
			return lerr
		}
		if *ttl > 0 || *sub != "" {
			j, err = rebuildJWT(cfg, *ttl, *sub)
			if err != nil {
				return err
			}
		}
		tok, terr := j.Token()
		if terr != nil {
			return terr
		}
		_, err = fmt.Fprintln(out, tok)
		return err

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// rebuildJWT mints from the configured key with per-invocation claims.
func rebuildJWT(cfg *config.Config, ttl time.Duration, sub string) (*auth.JWT, error) {
	key, err := os.ReadFile(cfg.Auth.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	var opts []auth.JWTOption
	if ttl > 0 {
		opts = append(opts, auth.WithTokenTTL(ttl))
	}
	if sub != "" {
		opts = append(opts, auth.WithSubject(sub))
	}
	return auth.NewJWT(cfg.Auth.ApplicationID, key, opts...)
}
