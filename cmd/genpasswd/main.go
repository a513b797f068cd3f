// genpasswd prints a random admin password and its bcrypt hash for the
// catalogd config. The password is never written to disk.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/launchmena/catalogd/internal/auth"
)

var (
	length   = flag.Int("length", auth.DefaultPasswordLength, "password length")
	username = flag.String("username", "admin", "admin username to print in the config snippet")
	cost     = flag.Int("cost", auth.DefaultBcryptCost, "bcrypt cost")
)

func main() {
	flag.Parse()

	password, err := auth.GeneratePassword(*length)
	if err != nil {
		fmt.Fprintf(os.Stderr, "genpasswd: %v\n", err)
		os.Exit(1)
	}
	hash, err := auth.NewPasswordHasher(*cost).Hash(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "genpasswd: hash: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Password: %s\n", password)
	fmt.Printf("Hash:     %s\n\n", hash)
	fmt.Println("Add to catalogd.yml:")
	fmt.Println("admin:")
	fmt.Printf("  username: %s\n", *username)
	fmt.Printf("  password_hash: '%s'\n\n", hash)
	fmt.Println("or export:")
	fmt.Printf("CATALOGD_ADMIN_USERNAME=%s\n", *username)
	fmt.Printf("CATALOGD_ADMIN_PASSWORD_HASH='%s'\n\n", hash)
	fmt.Println("Store the password in a password manager; it is not saved anywhere.")
}
