package longterm

import (
	"os"
	"testing"

	"github.com/sparrowhealth/clinic-platform/pkg/common/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}
