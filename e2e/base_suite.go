package e2e

import (
	"context"
	"fmt"
	"terminal-messenger/client"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

type BaseSuite struct {
	suite.Suite
	Config Config
	Client *client.Client
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.BaseURL == "" {
		s.T().Skip("E2E_BASE_URL not set")
	}
	s.Client = client.New(s.Config.BaseURL, 10*time.Second)
}

// Step runs fn under a colorized header with its own timeout.
func (s *BaseSuite) Step(name string, fn func(ctx context.Context)) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	start := time.Now()
	fn(ctx)
	s.T().Logf("%s done in %v", name, time.Since(start))
}

func (s *BaseSuite) ShowRendering(rendered string) {
	if s.Config.ShowRendering {
		s.T().Log("\n" + rendered)
	}
}
