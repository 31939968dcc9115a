// Command token mints an access token for local development. It reads the
// server configuration for the signing secret and token lifetime.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/filevault/internal/flagx"
	"github.com/dmitrijs2005/filevault/internal/server/auth"
	"github.com/dmitrijs2005/filevault/internal/server/config"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

func main() {

	cfg := config.LoadConfig()

	var id models.Identity
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	fs.StringVar(&id.UserID, "uid", "", "user id (required)")
	fs.Int64Var(&id.StorageQuota, "quota", 0, "storage quota in bytes, server default when 0")
	fs.StringVar(&id.FirstName, "first", "", "first name")
	fs.StringVar(&id.LastName, "last", "", "last name")
	fs.StringVar(&id.Email, "email", "", "email")
	_ = fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-uid", "-quota", "-first", "-last", "-email"}))

	if id.UserID == "" {
		log.Fatal("-uid is required")
	}

	token, err := auth.GenerateToken(id, []byte(cfg.SecretKey), cfg.AccessTokenValidityDuration)
	if err != nil {
		log.Fatalf("%v", err)
	}

	fmt.Println(token)

}
