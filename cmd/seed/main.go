// Command seed creates the default policy set for a company.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/config"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/fixtures"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/repository/postgresql"
	policyService "github.com/cmlabs-hris/hris-attendance-engine/internal/service/policy"
)

func main() {
	companyID := flag.String("company", "", "company ID to seed")
	effectiveFrom := flag.String("effective-from", time.Now().Format("2006-01-02"), "first effective date (YYYY-MM-DD)")
	allowedIPs := flag.String("allowed-ips", "", "comma separated office IPs or CIDR blocks for laptop clock-in")
	flag.Parse()

	if *companyID == "" || *allowedIPs == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		os.Exit(1)
	}
	defer db.Close()

	svc := policyService.NewPolicyService(
		policyService.NewRegistry(),
		postgresql.NewPolicyRepository(db),
		postgresql.NewAssignmentRepository(db),
		postgresql.NewTransactor(db),
	)

	auth := policy.AuthRule{Methods: []policy.AuthMethodRule{{
		DeviceType: "LAPTOP",
		AuthMethod: policy.AuthMethodNetworkIP,
		Details:    policy.AuthDetails{AllowedIPs: strings.Split(*allowedIPs, ",")},
	}}}

	ctx := context.Background()
	for _, req := range fixtures.GetAllDefaultPolicies(*companyID, *effectiveFrom, auth) {
		created, err := svc.Create(ctx, req)
		if err != nil {
			slog.Error("Failed to seed policy", "type_code", req.TypeCode, "error", err)
			os.Exit(1)
		}
		slog.Info("Policy seeded", "policy_id", created.ID, "type_code", created.TypeCode, "name", created.Name)
	}
}
