// Command seed populates the local tables with demo users and leads.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/propdesk/leadadmin/config"
	"github.com/propdesk/leadadmin/pkg/auth"
	"github.com/propdesk/leadadmin/pkg/models"
	"github.com/propdesk/leadadmin/pkg/store"
)

var pincodes = []string{
	"560001", "560034", "400001", "400053", "110001",
	"110016", "500001", "600001", "700001", "411001",
}

var statuses = []string{"new", "contacted", "site visit", "negotiation", "closed"}

var colors = []string{
	models.ColorWhite, models.ColorWhite, models.ColorWhite,
	models.ColorRed, models.ColorOrange, models.ColorYellow,
	models.ColorGreen, models.ColorBlue,
}

func main() {
	leadCount := flag.Int("leads", 100, "number of fake leads to create")
	salesCount := flag.Int("sales", 4, "number of sales users to create")
	password := flag.String("password", "changeme-now!", "password for all seeded users")
	flag.Parse()

	cfg := config.Load()

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		log.Fatalf("❌ Failed to load AWS configuration: %v", err)
	}
	dynamoClient := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoEndpoint)
		}
	})
	st := store.NewDynamo(dynamoClient, store.DynamoConfig{
		LeadsTable:  cfg.LeadsTable,
		UsersTable:  cfg.UsersTable,
		ByDateIndex: cfg.LeadsByDateIndex,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	hash, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatalf("❌ Failed to hash password: %v", err)
	}

	// Admin account
	if err := st.PutUser(ctx, &models.User{
		Email:        "admin@propdesk.io",
		Name:         "Admin",
		Role:         models.RoleAdmin,
		PasswordHash: hash,
	}); err != nil {
		log.Fatalf("❌ Failed to create admin user: %v", err)
	}

	// Sales accounts
	salesEmails := make([]string, 0, *salesCount)
	for i := 0; i < *salesCount; i++ {
		email := fmt.Sprintf("sales%d@propdesk.io", i+1)
		if err := st.PutUser(ctx, &models.User{
			Email:        email,
			Name:         gofakeit.Name(),
			Role:         models.RoleSales,
			PasswordHash: hash,
		}); err != nil {
			log.Fatalf("❌ Failed to create sales user %s: %v", email, err)
		}
		salesEmails = append(salesEmails, email)
	}
	log.Printf("✅ Created 1 admin and %d sales users", *salesCount)

	// Leads
	now := time.Now().UTC()
	for i := 0; i < *leadCount; i++ {
		lead := &models.Lead{
			ID:        uuid.NewString(),
			Name:      gofakeit.Name(),
			Email:     gofakeit.Email(),
			Phone:     fmt.Sprintf("+91%d", gofakeit.Number(7000000000, 9999999999)),
			Pincode:   fmt.Sprintf("%s - %s", gofakeit.City(), pincodes[i%len(pincodes)]),
			DateTime:  now.Add(-time.Duration(i) * time.Hour),
			Status:    statuses[gofakeit.Number(0, len(statuses)-1)],
			Notes:     []string{gofakeit.Sentence(6)},
			LeadColor: colors[gofakeit.Number(0, len(colors)-1)],
			UpdatedAt: now,
		}
		// Leave a third unassigned so the admin has bulk work to do.
		if gofakeit.Number(0, 2) > 0 {
			lead.AssignedTo = []string{salesEmails[gofakeit.Number(0, len(salesEmails)-1)]}
		}
		// Progress some leads down the follow-up track.
		switch gofakeit.Number(0, 3) {
		case 1:
			lead.Followup1 = gofakeit.Sentence(4)
		case 2:
			lead.Followup1 = gofakeit.Sentence(4)
			lead.Followup2 = gofakeit.Sentence(4)
		case 3:
			lead.Followup1 = gofakeit.Sentence(4)
			lead.Followup2 = gofakeit.Sentence(4)
			lead.Followup3 = gofakeit.Sentence(4)
			lead.DateOfCalling = now.AddDate(0, 0, gofakeit.Number(1, 14)).Format("2006-01-02")
		}
		if err := st.Put(ctx, lead); err != nil {
			log.Fatalf("❌ Failed to create lead %d: %v", i, err)
		}
	}
	log.Printf("✅ Created %d leads", *leadCount)
	log.Printf("🔑 Login with admin@propdesk.io / %s", *password)
}
