/*
ups-monitor - Monitors an X120x UPS HAT and shuts the host down
before the battery is exhausted.
Copyright (C) 2025, the ups-monitor authors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package main

import (
	"errors"

	"github.com/godbus/dbus"
	"github.com/godbus/dbus/introspect"

	"github.com/x120x/ups-monitor/ups"
)

const (
	dbusName = "org.x120x.UPSMonitor"
	dbusPath = "/org/x120x/UPSMonitor"
)

type service struct {
	monitor *monitor
}

func startService(m *monitor) error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return err
	}
	reply, err := conn.RequestName(dbusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return errors.New("name already taken")
	}

	s := &service{
		monitor: m,
	}
	conn.Export(s, dbusPath, dbusName)
	conn.Export(genIntrospectable(s), dbusPath, "org.freedesktop.DBus.Introspectable")
	return nil
}

func genIntrospectable(v interface{}) introspect.Introspectable {
	node := &introspect.Node{
		Interfaces: []introspect.Interface{{
			Name:    dbusName,
			Methods: introspect.Methods(v),
		}},
	}
	return introspect.NewIntrospectable(node)
}

// Status returns the most recent poll rendered as the one-line status
// the log carries.
func (s service) Status() (string, *dbus.Error) {
	last := s.monitor.lastStatus()
	if last.Time.IsZero() {
		return "no reading yet", nil
	}
	return renderStatus(last.Reading, last.Band, last.AC, last.RawPLD), nil
}

// Battery returns voltage, capacity and band of the last valid
// reading. valid is false while the gauge is unreadable.
func (s service) Battery() (float64, float64, string, bool, *dbus.Error) {
	last := s.monitor.lastStatus()
	if last.Reading == nil {
		return 0, 0, last.Band.String(), false, nil
	}
	return last.Reading.Voltage, last.Reading.Capacity, last.Band.String(), true, nil
}

// ACPresent reports the AC state of the last poll; known is false when
// AC sensing is disabled or the line was unreadable.
func (s service) ACPresent() (bool, bool, *dbus.Error) {
	last := s.monitor.lastStatus()
	if last.AC == ups.ACUnknown {
		return false, false, nil
	}
	return last.AC == ups.ACOnline, true, nil
}
