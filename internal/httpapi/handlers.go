// internal/httpapi/handlers.go
package httpapi

import (
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"github.com/tamzrod/stlink-bridge/internal/brgerr"
	"github.com/tamzrod/stlink-bridge/internal/bridge"
	"github.com/tamzrod/stlink-bridge/internal/config"
	"github.com/tamzrod/stlink-bridge/internal/dispatch"
	"github.com/tamzrod/stlink-bridge/internal/link"
	"github.com/tamzrod/stlink-bridge/internal/numbase"
)

// ---- session ----

type deviceBody struct {
	UniqueID  string `json:"unique_id"`
	VendorID  uint16 `json:"vendor_id"`
	ProductID uint16 `json:"product_id"`
	BridgeID  string `json:"bridge_id"`
	InUse     bool   `json:"in_use"`
}

func toDeviceBody(d link.DeviceDescriptor) deviceBody {
	return deviceBody{UniqueID: d.UniqueID, VendorID: d.VendorID, ProductID: d.ProductID, BridgeID: d.BridgeID, InUse: d.InUse}
}

func (s *Server) devices(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	devs, err := s.b.Session.List()
	if err != nil {
		s.fail(w, err)
		return
	}
	out := make([]deviceBody, 0, len(devs))
	for _, d := range devs {
		out = append(out, toDeviceBody(d))
	}
	s.reply(w, http.StatusOK, out)
}

type sessionBody struct {
	State     string      `json:"state"`
	Device    *deviceBody `json:"device,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
	Firmware  string      `json:"firmware"`
	Polling   bool        `json:"polling"`
	Base      int         `json:"base"`
}

func (s *Server) sessionBody() sessionBody {
	out := sessionBody{
		State:    s.b.Session.State().String(),
		Firmware: s.b.Session.Firmware(),
		Polling:  s.b.Poller.Running(),
		Base:     int(s.b.Base()),
	}
	if info, ok := s.b.Session.Current(); ok {
		d := toDeviceBody(info.Device)
		out.Device = &d
		out.SessionID = info.SessionID
	}
	return out
}

func (s *Server) session(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.reply(w, http.StatusOK, s.sessionBody())
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Device string `json:"device"`
	}
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			s.badRequest(w, err.Error())
			return
		}
	}
	if _, err := s.b.Connect(req.Device); err != nil {
		s.fail(w, err)
		return
	}
	s.reply(w, http.StatusOK, s.sessionBody())
}

func (s *Server) disconnect(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	// Close errors are reported but the session is gone either way.
	if err := s.b.Session.Disconnect(); err != nil {
		s.fail(w, err)
		return
	}
	s.reply(w, http.StatusOK, s.sessionBody())
}

// ---- gpio ----

type gpioReadBody struct {
	Code      string    `json:"code"`
	Values    [4]string `json:"values"`
	ErrorMask uint8     `json:"error_mask"`
}

func (s *Server) readGpio(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	res := s.b.Dispatch.ReadGpio(link.GpioAll)
	if res.Err != nil {
		s.fail(w, res.Err)
		return
	}
	out := gpioReadBody{Code: string(res.Status), ErrorMask: res.ErrorMask}
	for i, v := range res.Values {
		out.Values[i] = v.String()
	}
	s.reply(w, http.StatusOK, out)
}

func channelParam(p httprouter.Params) (int, error) {
	ch, err := strconv.Atoi(p.ByName("channel"))
	if err != nil || ch < 0 || ch >= link.GpioChannels {
		return 0, brgerr.Param(brgerr.InvalidChannel, "http.gpio", "channel "+p.ByName("channel"))
	}
	return ch, nil
}

type gpioConfigBody struct {
	Mode       string `json:"mode"`
	Speed      string `json:"speed,omitempty"`
	Pull       string `json:"pull,omitempty"`
	OutputType string `json:"output_type,omitempty"`
}

func (s *Server) getGpioConfig(w http.ResponseWriter, _ *http.Request, p httprouter.Params) {
	ch, err := channelParam(p)
	if err != nil {
		s.fail(w, err)
		return
	}
	cc, err := s.b.Gpio.GetConfig(ch)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.reply(w, http.StatusOK, map[string]any{"channel": ch, "config": cc.String()})
}

func (s *Server) setGpioConfig(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	ch, err := channelParam(p)
	if err != nil {
		s.fail(w, err)
		return
	}
	var req gpioConfigBody
	if err := decode(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	cc, err := bridge.GpioChannelConfig(config.GpioConfig{
		Channel: ch, Mode: req.Mode, Speed: req.Speed, Pull: req.Pull, OutputType: req.OutputType,
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := s.b.Gpio.SetConfig(ch, cc); err != nil {
		s.fail(w, err)
		return
	}
	s.reply(w, http.StatusOK, map[string]any{"channel": ch, "config": cc.String()})
}

func (s *Server) writeGpio(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	ch, err := channelParam(p)
	if err != nil {
		s.fail(w, err)
		return
	}
	var req struct {
		Set bool `json:"set"`
	}
	if err := decode(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	lv := link.GpioReset
	if req.Set {
		lv = link.GpioSet
	}
	res := s.b.Dispatch.WriteGpio(link.MaskOf(ch), lv)
	if res.Err != nil {
		s.fail(w, res.Err)
		return
	}
	s.reply(w, http.StatusOK, map[string]any{"channel": ch, "set": req.Set})
}

// ---- i2c ----

type i2cConfigBody struct {
	AddressMode   string `json:"address_mode"`
	OwnAddress    uint16 `json:"own_address"`
	AnalogFilter  bool   `json:"analog_filter"`
	DigitalFilter bool   `json:"digital_filter"`
	DNF           uint8  `json:"dnf"`
	Speed         string `json:"speed"`
	FrequencyKHz  uint32 `json:"frequency_khz"`
	RiseTimeNs    int    `json:"rise_time_ns"`
	FallTimeNs    int    `json:"fall_time_ns"`
}

func (s *Server) setI2cConfig(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req i2cConfigBody
	if err := decode(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	conf, bus, err := bridge.I2cSettings(&config.I2cConfig{
		AddressMode:   req.AddressMode,
		OwnAddress:    req.OwnAddress,
		AnalogFilter:  req.AnalogFilter,
		DigitalFilter: req.DigitalFilter,
		DNF:           req.DNF,
		Speed:         req.Speed,
		FrequencyKHz:  req.FrequencyKHz,
		RiseTimeNs:    req.RiseTimeNs,
		FallTimeNs:    req.FallTimeNs,
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	applied, err := s.b.I2c.Apply(conf, bus)
	if err != nil {
		s.fail(w, err)
		return
	}
	out := map[string]any{
		"timing_register": applied.Config.TimingRegister,
		"peripheral_khz":  applied.Timing.PeripheralKHz,
	}
	if applied.Warning != nil {
		out["warning"] = string(brgerr.Of(applied.Warning))
	}
	s.reply(w, http.StatusOK, out)
}

type transferBody struct {
	Code        string `json:"code"`
	Transferred int    `json:"transferred"`
	Data        string `json:"data,omitempty"`
	Line        string `json:"line"`
}

func (s *Server) transfer(w http.ResponseWriter, t dispatch.I2cTransfer, line string, err error) {
	if line == "" {
		// parse error, nothing reached the bus
		s.fail(w, err)
		return
	}
	out := transferBody{Code: string(t.Status), Transferred: t.Transferred, Line: line}
	if len(t.Data) > 0 {
		out.Data = numbase.FormatBytes(t.Data, s.b.Base())
	}
	status := http.StatusOK
	if err != nil {
		status = statusFor(brgerr.Of(err))
	}
	s.reply(w, status, out)
}

func (s *Server) writeI2c(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var req struct {
		Data string `json:"data"`
	}
	if err := decode(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	t, line, err := s.b.WriteI2cText(p.ByName("address"), req.Data)
	s.transfer(w, t, line, err)
}

func (s *Server) readI2c(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var req struct {
		Count string `json:"count"`
	}
	if err := decode(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	t, line, err := s.b.ReadI2cText(p.ByName("address"), req.Count)
	s.transfer(w, t, line, err)
}

// ---- poll / base ----

func (s *Server) startPoll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		IntervalMs int `json:"interval_ms"`
	}
	if err := decode(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if err := s.b.Poller.Start(req.IntervalMs); err != nil {
		s.fail(w, err)
		return
	}
	s.reply(w, http.StatusOK, s.sessionBody())
}

func (s *Server) stopPoll(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.b.Poller.Stop()
	s.reply(w, http.StatusOK, s.sessionBody())
}

func (s *Server) setBase(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Base int `json:"base"`
	}
	if err := decode(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if err := s.b.SetNumericBase(numbase.Base(req.Base)); err != nil {
		s.fail(w, err)
		return
	}
	s.reply(w, http.StatusOK, s.sessionBody())
}
