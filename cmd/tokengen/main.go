// Command tokengen mints portal bearer tokens for local development.
package main

import (
	"crypto/rsa"
	"fmt"
	"os"
	"strings"
	"time"

	"voucher-portal/internal/pkg/jwt"

	"github.com/spf13/pflag"
)

func main() {
	var (
		keyPath       = pflag.StringP("key", "k", "", "PEM RSA private key (an ephemeral key is used when empty)")
		subject       = pflag.StringP("sub", "s", "1", "subject (user id)")
		name          = pflag.StringP("name", "n", "Dev Admin", "display name")
		role          = pflag.StringP("role", "r", "admin", "role")
		email         = pflag.String("email", "", "email")
		mobile        = pflag.String("mobile", "", "mobile number")
		provider      = pflag.String("auth-provider", "local", "auth provider")
		serviceCenter = pflag.Int64("service-center", 0, "service center id (omitted when 0)")
		permissions   = pflag.StringSliceP("permission", "p", nil, "granted capability, repeatable or comma separated")
		ttl           = pflag.Duration("ttl", time.Hour, "token lifetime")
		issuer        = pflag.String("iss", "voucher-portal-dev", "issuer")
		audience      = pflag.String("aud", "voucher-portal", "audience")
	)
	pflag.Parse()

	key, err := loadKey(*keyPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	payload := jwt.Payload{
		Subject:      jwt.SubjectID(*subject),
		Name:         *name,
		Role:         *role,
		Email:        *email,
		MobileNumber: *mobile,
		AuthProvider: *provider,
		Permissions:  trimAll(*permissions),
	}
	if *serviceCenter != 0 {
		id := *serviceCenter
		payload.ServiceCenterID = &id
	}
	active := true
	payload.IsActive = &active

	gen := jwt.NewGenerator(key, *issuer, *audience, "", *ttl)
	token, _, err := gen.Generate(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func loadKey(path string) (*rsa.PrivateKey, error) {
	if path == "" {
		return jwt.EphemeralKey()
	}
	return jwt.LoadRSAPrivateKeyFromPEM(path)
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
