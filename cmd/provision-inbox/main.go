package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"livechat-backend/internal/database"
	"livechat-backend/internal/model"
	"livechat-backend/utils"
)

// Provisions a new inbox and prints the widget token to embed in the
// customer page.
func main() {
	name := flag.String("name", "", "inbox display name")
	branch := flag.String("branch", "", "owning branch id (empty for a global inbox routed by rules)")
	flag.Parse()

	if *name == "" {
		log.Fatal("missing -name")
	}

	db, err := database.NewDatabase()
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}

	inbox := model.InboxItem{
		InboxID:     uuid.NewString(),
		Name:        *name,
		BranchID:    *branch,
		WidgetToken: utils.GenerateWidgetToken(),
		Active:      true,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}

	if err := db.Client.PutItem(context.Background(), model.InboxesTable, inbox); err != nil {
		log.Fatalf("create inbox failed: %v", err)
	}

	fmt.Printf("inbox %s created\nwidget token: %s\n", inbox.InboxID, inbox.WidgetToken)
}
