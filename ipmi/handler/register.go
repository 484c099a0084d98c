package handler

import (
	"github.com/vb15s/intel-ipmi-oem/ipmi"
)

// Register binds every command this handler implements. The reservation and
// record-read commands answer on both the sensor and the storage netfn so
// that device-SDR and repository-SDR walkers see the same record space.
func (h *Handler) Register(router *ipmi.Router) {
	router.Register(ipmi.NetFnSensor, ipmi.CmdPlatformEvent, ipmi.PrivilegeOperator,
		"PlatformEvent", h.PlatformEvent)
	router.Register(ipmi.NetFnSensor, ipmi.CmdGetSensorReading, ipmi.PrivilegeUser,
		"GetSensorReading", h.GetSensorReading)
	router.Register(ipmi.NetFnSensor, ipmi.CmdGetSensorThresholds, ipmi.PrivilegeUser,
		"GetSensorThresholds", h.GetSensorThresholds)
	router.Register(ipmi.NetFnSensor, ipmi.CmdSetSensorThresholds, ipmi.PrivilegeOperator,
		"SetSensorThresholds", h.SetSensorThresholds)
	router.Register(ipmi.NetFnSensor, ipmi.CmdGetSensorEventEnable, ipmi.PrivilegeUser,
		"GetSensorEventEnable", h.GetSensorEventEnable)
	router.Register(ipmi.NetFnSensor, ipmi.CmdGetSensorEventStatus, ipmi.PrivilegeUser,
		"GetSensorEventStatus", h.GetSensorEventStatus)

	// claimed but not implemented
	router.Register(ipmi.NetFnSensor, ipmi.CmdGetSensorType, ipmi.PrivilegeUser,
		"GetSensorType", h.UnsupportedCommand)
	router.Register(ipmi.NetFnSensor, ipmi.CmdSetSensorReading, ipmi.PrivilegeOperator,
		"SetSensorReading", h.UnsupportedCommand)

	// device SDR flavor
	router.Register(ipmi.NetFnSensor, ipmi.CmdReserveDeviceSDRRepo, ipmi.PrivilegeUser,
		"ReserveDeviceSDRRepository", h.ReserveSDRRepository)
	router.Register(ipmi.NetFnSensor, ipmi.CmdGetDeviceSDR, ipmi.PrivilegeUser,
		"GetDeviceSDR", h.GetSDR)

	router.Register(ipmi.NetFnStorage, ipmi.CmdGetSDRRepositoryInfo, ipmi.PrivilegeUser,
		"GetSDRRepositoryInfo", h.GetSDRRepositoryInfo)
	router.Register(ipmi.NetFnStorage, ipmi.CmdGetSDRAllocationInfo, ipmi.PrivilegeUser,
		"GetSDRAllocationInfo", h.GetSDRAllocationInfo)
	router.Register(ipmi.NetFnStorage, ipmi.CmdReserveSDRRepository, ipmi.PrivilegeUser,
		"ReserveSDRRepository", h.ReserveSDRRepository)
	router.Register(ipmi.NetFnStorage, ipmi.CmdGetSDR, ipmi.PrivilegeUser,
		"GetSDR", h.GetSDR)
}
