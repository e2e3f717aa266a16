package e2e

import (
	"context"
	"fmt"
	"mailbox/client"
	"net/http"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

type BaseHTTPSuite struct {
	suite.Suite
	Config Config
	Client *client.Client
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseHTTPSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.MailboxURL == "" {
		s.T().Skip("MAILBOX_URL not set, skipping end to end suite")
	}
	s.Client = client.New(s.Config.MailboxURL, s.Config.AccessKey, &http.Client{Timeout: s.Config.Timeout})
}

// Step prints a header then runs fn with a bounded context
func (s *BaseHTTPSuite) Step(name string, fn func(ctx context.Context, c *client.Client)) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	ctx, cancel := context.WithTimeout(context.Background(), s.Config.Timeout)
	defer cancel()
	fn(ctx, s.Client)
}

// Drain empties the mailbox so the scenario starts from a known state
func (s *BaseHTTPSuite) Drain(ctx context.Context) int {
	drained := 0
	for {
		response, err := s.Client.TakeNext(ctx)
		s.Require().NoError(err)
		if response.Data == nil {
			return drained
		}
		drained++
	}
}
