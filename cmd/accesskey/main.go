package main

import (
	"bufio"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"mailbox/auth"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var key, verify string
	var generate bool

	flagSet := pflag.NewFlagSet("accesskey", pflag.ContinueOnError)
	flagSet.StringVarP(&key, "key", "k", "", "access key to hash (read from stdin when empty)")
	flagSet.BoolVarP(&generate, "generate", "g", false, "generate a random access key and print it with its hash")
	flagSet.StringVar(&verify, "verify", "", "check the key against this encoded hash instead of hashing it")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if generate {
		random := make([]byte, 32)
		if _, err := rand.Read(random); err != nil {
			return err
		}
		key = base64.RawURLEncoding.EncodeToString(random)
		fmt.Printf("key:  %s\n", key)
	}
	if key == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("no key given: %w", err)
		}
		key = strings.TrimSpace(line)
	}

	if verify != "" {
		match, err := auth.CompareAccessKey(key, verify)
		if err != nil {
			return err
		}
		if !match {
			return fmt.Errorf("key does not match")
		}
		fmt.Println("key matches")
		return nil
	}

	hash, err := auth.HashAccessKey(key)
	if err != nil {
		return err
	}
	fmt.Printf("ACCESS_KEY_HASH='%s'\n", hash)
	return nil
}
