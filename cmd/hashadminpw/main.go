// Generates the argon2id hash for ADMIN_PASSWORD_HASH from the password
// given as the single argument.
package main

import (
	"fmt"
	"os"

	"github.com/Hiksang/rewardguard-backend/pkg/utils"
)

func main() {
	if len(os.Args) != 2 || os.Args[1] == "" {
		fmt.Fprintln(os.Stderr, "Usage: hashadminpw <password>")
		os.Exit(1)
	}

	hash, err := utils.HashPassword(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error hashing password: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
