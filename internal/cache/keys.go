package cache

import (
	"fmt"

	"github.com/trendsentry/service/pkg/models"
)

func RateLimitKey(client string) string {
	return fmt.Sprintf("ratelimit:%s", client)
}

func LatestReportKey(kind models.ReportKind) string {
	return fmt.Sprintf("report:latest:%s", kind)
}

func InsightsKey() string {
	return "feedback:insights"
}
