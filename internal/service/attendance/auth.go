package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/utils"
)

// Authenticator gates clock-in and clock-out on an approved device and the
// authentication rule of the member's STANDARD_WORK policy for that device type.
type Authenticator struct {
	requests leave.RequestRepository
	resolver policy.Resolver
}

func NewAuthenticator(requests leave.RequestRepository, resolver policy.Resolver) *Authenticator {
	return &Authenticator{requests: requests, resolver: resolver}
}

// Authenticate returns nil when the event may proceed.
func (a *Authenticator) Authenticate(ctx context.Context, req attendance.EventRequest, date time.Time) error {
	approved, err := a.requests.HasApprovedDevice(ctx, req.MemberID, req.DeviceID, req.DeviceType)
	if err != nil {
		return fmt.Errorf("failed to check device approval: %w", err)
	}
	if !approved {
		return attendance.ErrDeviceNotApproved
	}

	p, err := a.resolver.Resolve(ctx, req.MemberID, req.CompanyID, policy.TypeStandardWork, date)
	if err != nil {
		if errors.Is(err, policy.ErrNoApplicablePolicy) {
			return attendance.ErrAuthMethodNotConfigured
		}
		return fmt.Errorf("failed to resolve standard work policy: %w", err)
	}

	method, ok := p.RuleDetails.AuthRule.MethodFor(req.DeviceType)
	if !ok {
		return attendance.ErrAuthMethodNotConfigured
	}

	switch method.AuthMethod {
	case policy.AuthMethodGPS:
		return checkGPS(method.Details, req.Latitude, req.Longitude)
	case policy.AuthMethodNetworkIP:
		return checkNetworkIP(method.Details, req.ClientIP)
	}

	slog.Warn("Unsupported authentication method", "auth_method", method.AuthMethod, "policy_id", p.ID)
	return attendance.ErrAuthMethodNotConfigured
}

func checkGPS(d policy.AuthDetails, lat, lng *float64) error {
	if lat == nil || lng == nil {
		return attendance.ErrLocationRequired
	}
	if d.OfficeLatitude == nil || d.OfficeLongitude == nil || d.GPSRadiusMeters == nil {
		return attendance.ErrAuthMethodNotConfigured
	}

	office := utils.Coordinate{Latitude: *d.OfficeLatitude, Longitude: *d.OfficeLongitude}
	member := utils.Coordinate{Latitude: *lat, Longitude: *lng}
	if !utils.WithinRadius(office, member, *d.GPSRadiusMeters) {
		return attendance.ErrOutsideAllowedRadius
	}
	return nil
}

// checkNetworkIP accepts exact addresses and CIDR prefixes.
func checkNetworkIP(d policy.AuthDetails, clientIP string) error {
	addr, err := netip.ParseAddr(strings.TrimSpace(clientIP))
	if err != nil {
		return attendance.ErrIPNotAllowed
	}
	addr = addr.Unmap()

	for _, allowed := range d.AllowedIPs {
		allowed = strings.TrimSpace(allowed)
		if strings.Contains(allowed, "/") {
			prefix, err := netip.ParsePrefix(allowed)
			if err == nil && prefix.Contains(addr) {
				return nil
			}
			continue
		}
		ip, err := netip.ParseAddr(allowed)
		if err == nil && ip.Unmap() == addr {
			return nil
		}
	}
	return attendance.ErrIPNotAllowed
}
