// Package routeros commits vouchers to the MikroTik access controller over
// the RouterOS management API.
package routeros

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	ros "github.com/go-routeros/routeros/v3"

	"github.com/mikronet-dev/hotspot-backend/internal/models"
)

var (
	// ErrRouterUnreachable covers dial, authentication and timeout failures.
	ErrRouterUnreachable = errors.New("routeros: router unreachable")
	// ErrCommandRejected covers command failures, e.g. a duplicate user name.
	ErrCommandRejected = errors.New("routeros: command rejected")
)

const (
	defaultDialTimeout    = 10 * time.Second
	defaultCommandTimeout = 10 * time.Second
)

// Provisioner creates hotspot users on the router. Each call opens its own
// management connection and closes it when done.
type Provisioner struct {
	address  string
	username string
	password string

	dialTimeout    time.Duration
	commandTimeout time.Duration
}

// NewProvisioner creates a Provisioner for the given RouterOS API endpoint.
func NewProvisioner(address, username, password string) *Provisioner {
	return &Provisioner{
		address:        address,
		username:       username,
		password:       password,
		dialTimeout:    defaultDialTimeout,
		commandTimeout: defaultCommandTimeout,
	}
}

// CreateHotspotUser adds a hotspot user with the voucher code as both name
// and password, bound to the plan's profile and uptime limit.
func (p *Provisioner) CreateHotspotUser(ctx context.Context, code string, plan models.Plan) error {
	ctx, cancel := context.WithTimeout(ctx, p.commandTimeout)
	defer cancel()

	if err := ctx.Err(); err != nil {
		return err
	}

	client, err := ros.DialTimeout(p.address, p.username, p.password, p.dialTimeout)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRouterUnreachable, err)
	}

	var once sync.Once
	closeClient := func() { once.Do(func() { client.Close() }) }
	defer closeClient()

	// Run blocks on the reply with no deadline of its own, so a router that
	// logs in and then goes silent would pin this goroutine. The watchdog
	// closes the connection when the context expires, which errors out the
	// blocked read.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			closeClient()
		case <-done:
		}
	}()

	_, err = client.Run(
		"/ip/hotspot/user/add",
		"=name="+code,
		"=password="+code,
		"=profile="+plan.ProfileName,
		"=limit-uptime="+plan.LimitUptime,
	)
	close(done)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: command timed out: %v", ErrRouterUnreachable, ctxErr)
		}
		return fmt.Errorf("%w: %v", ErrCommandRejected, err)
	}

	log.Printf("[routeros] created hotspot user for plan %s (profile %s, uptime %s)",
		plan.ID, plan.ProfileName, plan.LimitUptime)
	return nil
}
