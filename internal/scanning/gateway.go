package scanning

import (
	"context"
	"time"

	"github.com/cyberrange/rangescan/internal/db"
	"github.com/cyberrange/rangescan/internal/errors"
	"github.com/cyberrange/rangescan/internal/nmapout"
)

// dbGateway adapts the database repositories to the parser's gateway
// contract. Each call commits one row so partial progress survives a
// mid-scan crash and concurrent readers see whole rows only.
type dbGateway struct {
	devices  *db.DeviceRepository
	findings *db.FindingRepository
}

// NewGateway wires the parser's persistence contract to database
// repositories.
func NewGateway(devices *db.DeviceRepository, findings *db.FindingRepository) nmapout.Gateway {
	return &dbGateway{devices: devices, findings: findings}
}

func (g *dbGateway) UpsertDevice(ctx context.Context, snap nmapout.DeviceSnapshot) error {
	// The devices table keys on INET; a header token that is not an IP
	// (an unresolved hostname from a list scan) cannot be stored and is
	// rejected here so the parser logs it and moves on.
	ip, err := db.ParseIPAddr(snap.IP)
	if err != nil {
		return errors.ErrInvalidTarget(snap.IP)
	}

	device := &db.Device{
		IP:       ip,
		Status:   db.DeviceStatusUp,
		LastSeen: time.Now(),
	}
	if snap.MAC != "" {
		var mac db.MACAddr
		if err := mac.Scan(snap.MAC); err != nil {
			return err
		}
		device.MAC = &mac
	}
	if snap.Vendor != "" {
		device.Vendor = &snap.Vendor
	}
	if snap.OS != "" {
		device.OS = &snap.OS
	}

	return g.devices.Upsert(ctx, device)
}

func (g *dbGateway) UpsertInformationalFinding(ctx context.Context, ip string, port int, service string) error {
	addr, err := db.ParseIPAddr(ip)
	if err != nil {
		return errors.ErrInvalidTarget(ip)
	}

	return g.findings.UpsertInformational(ctx, &db.Finding{
		DeviceIP: addr,
		Port:     port,
		Service:  service,
		Evidence: "Open port detected",
		Severity: db.SeverityInformational,
	})
}

func (g *dbGateway) UpsertEscalatedFinding(ctx context.Context, ip string, port int, service, evidence string, at time.Time) error {
	addr, err := db.ParseIPAddr(ip)
	if err != nil {
		return errors.ErrInvalidTarget(ip)
	}

	return g.findings.UpsertEscalated(ctx, &db.Finding{
		DeviceIP:   addr,
		Port:       port,
		Service:    service,
		Evidence:   evidence,
		Severity:   db.SeverityHigh,
		DetectedAt: at,
	})
}
