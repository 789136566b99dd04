// Command seed loads a demo organization, members and a sample approved
// PDA into the database, then prints development JWTs for each role.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"portledger/internal/auth"
	"portledger/internal/fx"
	pda "portledger/internal/pda/domain"
)

func main() {
	_ = godotenv.Load()

	var (
		dsn      = flag.String("dsn", envDefault("DATABASE_URL", os.Getenv("PG_DSN")), "postgres connection string")
		secret   = flag.String("jwt-secret", envDefault("AUTH_JWT_SECRET", os.Getenv("JWT_SECRET")), "jwt signing secret")
		tenantID = flag.String("tenant", "org-demo", "organization id to seed")
		tokenTTL = flag.Duration("token-ttl", 24*time.Hour, "dev token lifetime")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("dsn is required (or set DATABASE_URL / PG_DSN)")
	}

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := seedOrg(ctx, db, *tenantID); err != nil {
		log.Fatalf("seed org error: %v", err)
	}
	if err := seedPDA(ctx, db, *tenantID); err != nil {
		log.Fatalf("seed pda error: %v", err)
	}
	log.Printf("seeded organization %s with members and a sample approved PDA", *tenantID)

	if *secret == "" {
		log.Print("no jwt secret set, skipping dev tokens")
		return
	}
	for _, role := range []auth.Role{auth.RoleViewer, auth.RoleOperator, auth.RoleAdmin} {
		token, err := auth.SignToken([]byte(*secret), *tenantID, role, "dev-"+string(role), *tokenTTL)
		if err != nil {
			log.Fatalf("sign token error: %v", err)
		}
		fmt.Printf("%s: %s\n", role, token)
	}
}

func seedOrg(ctx context.Context, db *sql.DB, tenantID string) error {
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, `
INSERT INTO organizations (id, name, country, tax_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (id) DO NOTHING`,
		tenantID, "Demo Ship Agency", "BR", "00.000.000/0001-00", now)
	if err != nil {
		return err
	}

	members := []struct {
		id, email, name string
		role            auth.Role
	}{
		{"member-demo-admin", "admin@demo.agency", "Demo Admin", auth.RoleAdmin},
		{"member-demo-operator", "ops@demo.agency", "Demo Operator", auth.RoleOperator},
		{"member-demo-viewer", "viewer@demo.agency", "Demo Viewer", auth.RoleViewer},
	}
	for _, m := range members {
		_, err := db.ExecContext(ctx, `
INSERT INTO org_members (id, org_id, email, display_name, role, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
ON CONFLICT (org_id, email) DO NOTHING`,
			m.id, tenantID, m.email, m.name, string(m.role), now)
		if err != nil {
			return err
		}
	}
	return nil
}

func seedPDA(ctx context.Context, db *sql.DB, tenantID string) error {
	rate, err := fx.NewManualRate(decimal.NewFromFloat(5.25))
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	p, err := pda.New("pda-demo-001", tenantID, "Acme Trading Ltd", pda.ShipParticulars{
		VesselName: "MV Horizon",
		IMO:        "9700001",
		DWT:        45000,
		LOA:        190,
		PortName:   "Santos",
		Terminal:   "Tecon",
	}, rate, now)
	if err != nil {
		return err
	}
	if err := p.Cost.SetManual(pda.CategoryPilotageIn, decimal.NewFromInt(3200)); err != nil {
		return err
	}
	if err := p.Cost.SetManual(pda.CategoryTowageIn, decimal.NewFromInt(5400)); err != nil {
		return err
	}
	if err := p.Cost.SetManual(pda.CategoryAgencyFee, decimal.NewFromInt(9804)); err != nil {
		return err
	}
	if err := p.Approve(now); err != nil {
		return err
	}

	costJSON, err := json.Marshal(p.Cost)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
INSERT INTO pdas (
	id, tenant_id, client_name, vessel_name, imo, dwt, loa, port_name, terminal, berth,
	rate_value, rate_source, rate_quoted_at, cost_record, remarks, status,
	created_at, updated_at, approved_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
ON CONFLICT (id) DO NOTHING`,
		p.ID, p.TenantID, p.ClientName, p.Ship.VesselName, p.Ship.IMO, p.Ship.DWT, p.Ship.LOA,
		p.Ship.PortName, p.Ship.Terminal, nil,
		p.Rate.Value, string(p.Rate.Source), nil, costJSON, nil, p.Status,
		p.CreatedAt, p.UpdatedAt, p.ApprovedAt)
	return err
}

func envDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
