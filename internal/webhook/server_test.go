package webhook

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func discardEntry() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("test", true)
}

func TestNewServer_MountsValidateAndConvert(t *testing.T) {
	s := NewServer(nil, nil, []string{"*"}, discardEntry())

	routes := s.Router.Routes()
	var gotValidate, gotConvert bool
	for _, rt := range routes {
		switch rt.Pattern {
		case "/validate":
			gotValidate = true
		case "/convert":
			gotConvert = true
		}
	}
	if !gotValidate {
		t.Error("expected /validate to be mounted")
	}
	if !gotConvert {
		t.Error("expected /convert to be mounted")
	}
}
