// AngelaMos | 2026
// admin.go

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/nthalt/user-api/internal/auth"
	"github.com/nthalt/user-api/internal/core"
	"github.com/nthalt/user-api/internal/user"
)

// readPassword is swapped out in tests so no terminal is needed.
var readPassword = term.ReadPassword

type adminCreator interface {
	CreateUser(ctx context.Context, req auth.RegisterRequest, role string) (*auth.UserInfo, error)
}

type prompter struct {
	reader *bufio.Reader
	out    io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{reader: bufio.NewReader(in), out: out}
}

func (p *prompter) text(label string) (string, error) {
	if _, err := fmt.Fprintf(p.out, "%s: ", label); err != nil {
		return "", err
	}
	line, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *prompter) password(label string) (string, error) {
	if _, err := fmt.Fprintf(p.out, "%s: ", label); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

// createAdmin prompts for any field not given as a flag, then stores the
// account with the Admin role.
func createAdmin(
	ctx context.Context,
	svc adminCreator,
	p *prompter,
	req auth.RegisterRequest,
) error {
	fields := []struct {
		label string
		dst   *string
	}{
		{"Username", &req.Username},
		{"Email", &req.Email},
		{"First name", &req.FirstName},
		{"Last name", &req.LastName},
	}
	for _, f := range fields {
		if *f.dst != "" {
			continue
		}
		v, err := p.text(f.label)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	password, err := p.password("Password")
	if err != nil {
		return err
	}
	confirm, err := p.password("Confirm password")
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}
	req.Password = password

	req.Trim()
	if err := core.NewValidator().Struct(req); err != nil {
		return errors.New(core.FormatValidationError(err))
	}

	created, err := svc.CreateUser(ctx, req, user.RoleAdmin)
	if err != nil {
		var appErr *core.AppError
		if errors.As(err, &appErr) {
			return errors.New(appErr.Message)
		}
		return err
	}

	fmt.Fprintf(p.out, "admin %q created with id %d\n", created.Username, created.ID)
	return nil
}
