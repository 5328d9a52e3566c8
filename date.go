package tern

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/oxhq/tern/internal/lvlhsh"
)

// maxDateTime bounds the representable epoch in milliseconds.
const maxDateTime = 8.64e15

// Date stores milliseconds since the epoch; NaN is "Invalid Date".
type Date struct {
	Object
	time float64
}

// Time returns the epoch milliseconds.
func (d *Date) Time() float64 { return d.time }

// SetTime clips and stores a time value.
func (d *Date) SetTime(t float64) {
	d.time = timeClip(t)
}

func timeClip(t float64) float64 {
	if math.IsNaN(t) || math.Abs(t) > maxDateTime {
		return math.NaN()
	}
	t = math.Trunc(t)
	if t == 0 {
		return 0 // fold -0
	}
	return t
}

// NewDate constructs a date value the way the Date constructor does: no
// arguments is now, one number is an epoch, one string parses, two or more
// numbers assemble a local calendar date.
func (vm *VM) NewDate(args ...Value) Value {
	var t float64

	switch len(args) {
	case 0:
		t = float64(time.Now().UnixMilli())
	case 1:
		if args[0].IsString() {
			t = DateParse(args[0].Str())
		} else {
			t = timeClip(args[0].ToNumber())
		}
	default:
		t = makeDateFromArgs(args, false)
	}

	d := &Date{
		Object: Object{kind: KindDate, proto: vm.protoDate, extensible: true},
		time:   t,
	}
	return objectRef(KindDate, d)
}

// makeDateFromArgs assembles (year, month, day, hours, minutes, seconds,
// ms); any non-finite field poisons the result.
func makeDateFromArgs(args []Value, utc bool) float64 {
	fields := [7]float64{0, 0, 1, 0, 0, 0, 0}
	for i := 0; i < len(args) && i < 7; i++ {
		n := args[i].ToNumber()
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return math.NaN()
		}
		fields[i] = math.Trunc(n)
	}

	year := fields[0]
	if year >= 0 && year <= 99 {
		year += 1900
	}

	if utc {
		days := makeDay(year, fields[1], fields[2])
		ms := makeTime(fields[3], fields[4], fields[5], fields[6])
		return timeClip(days*86400000 + ms)
	}
	return timeClip(localCompose(year, fields[1], fields[2], fields[3], fields[4], fields[5], fields[6]))
}

// localCompose builds an epoch from local calendar fields through the
// system zone database, normalizing out-of-range fields.
func localCompose(year, month, day, hour, min, sec, ms float64) float64 {
	if math.Abs(year) > 300000 || math.Abs(month) > 1e5 || math.Abs(day) > 1e8 ||
		math.Abs(hour) > 1e9 || math.Abs(min) > 1e10 || math.Abs(sec) > 1e12 || math.Abs(ms) > 1e15 {
		return math.NaN()
	}
	t := time.Date(int(year), time.Month(int(month)+1), int(day),
		int(hour), int(min), int(sec), int(ms)*1e6, time.Local)
	return float64(t.UnixMilli())
}

// makeDay returns whole days since the epoch for a (possibly unnormalized)
// year/month/day, months counted from zero.
func makeDay(year, month, date float64) float64 {
	year += math.Floor(month / 12)
	month = math.Mod(month, 12)
	if month < 0 {
		month += 12
	}
	return float64(daysFromCivil(int64(year), int(month)+1, 1)) + date - 1
}

func makeTime(hour, min, sec, ms float64) float64 {
	return hour*3600000 + min*60000 + sec*1000 + ms
}

// daysFromCivil converts a proleptic Gregorian date to days since
// 1970-01-01, shifting the year so it starts in March; that makes the
// leap-day the last day of the cycle and keeps the formula valid for BCE
// years.
func daysFromCivil(y int64, m, d int) int64 {
	if m <= 2 {
		y--
	}
	era := y / 400
	if y%400 < 0 {
		era--
	}
	yoe := y - era*400 // [0, 399]
	var mp int
	if m > 2 {
		mp = m - 3
	} else {
		mp = m + 9
	}
	doy := int64((153*mp+2)/5 + d - 1)            // [0, 365]
	doe := yoe*365 + yoe/4 - yoe/100 + doy        // [0, 146096]
	return era*146097 + doe - 719468
}

// civilFromDays is the inverse of daysFromCivil.
func civilFromDays(z int64) (int64, int, int) {
	z += 719468
	era := z / 146097
	if z%146097 < 0 {
		era--
	}
	doe := z - era*146097
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365
	y := yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	mp := (5*doy + 2) / 153
	d := int(doy-(153*mp+2)/5) + 1
	var m int
	if mp < 10 {
		m = int(mp) + 3
	} else {
		m = int(mp) - 9
	}
	if m <= 2 {
		y++
	}
	return y, m, d
}

type dateFields struct {
	year                 int64
	month, day, weekday  int
	hour, min, sec, msec int
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b < 0 {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// decompose splits an epoch into calendar fields, either in UTC by pure
// arithmetic or in the local zone through the system database.
func decompose(t float64, utc bool) (dateFields, bool) {
	if math.IsNaN(t) {
		return dateFields{}, false
	}

	if !utc {
		lt := time.UnixMilli(int64(t)).In(time.Local)
		y, m, d := lt.Date()
		h, mi, s := lt.Clock()
		return dateFields{
			year: int64(y), month: int(m) - 1, day: d,
			weekday: int(lt.Weekday()),
			hour:    h, min: mi, sec: s, msec: lt.Nanosecond() / 1e6,
		}, true
	}

	ms := int64(t)
	days := floorDiv(ms, 86400000)
	rem := floorMod(ms, 86400000)

	y, m, d := civilFromDays(days)
	return dateFields{
		year: y, month: m - 1, day: d,
		weekday: int(floorMod(days+4, 7)), // the epoch was a Thursday
		hour:    int(rem / 3600000),
		min:     int(rem / 60000 % 60),
		sec:     int(rem / 1000 % 60),
		msec:    int(rem % 1000),
	}, true
}

var (
	weekdayNames = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	monthNames   = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun",
		"Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
)

// --- Parsing -------------------------------------------------------------

// DateParse tries the three accepted formats in order: ISO 8601, RFC 2822,
// and the Date.toString layout. Anything else is NaN; there is no
// best-effort recovery.
func DateParse(s string) float64 {
	if t, ok := parseISO(s); ok {
		return timeClip(t)
	}
	if t, ok := parseRFC2822(s); ok {
		return timeClip(t)
	}
	if t, ok := parseJSDate(s); ok {
		return timeClip(t)
	}
	return math.NaN()
}

type dateScanner struct {
	s   string
	pos int
}

func (sc *dateScanner) eof() bool { return sc.pos >= len(sc.s) }

func (sc *dateScanner) peek() byte {
	if sc.eof() {
		return 0
	}
	return sc.s[sc.pos]
}

func (sc *dateScanner) accept(c byte) bool {
	if !sc.eof() && sc.s[sc.pos] == c {
		sc.pos++
		return true
	}
	return false
}

// number scans 1..max digits.
func (sc *dateScanner) number(max int) (int, bool) {
	start := sc.pos
	v := 0
	for sc.pos < len(sc.s) && sc.pos-start < max {
		c := sc.s[sc.pos]
		if c < '0' || c > '9' {
			break
		}
		v = v*10 + int(c-'0')
		sc.pos++
	}
	return v, sc.pos > start
}

func (sc *dateScanner) exactly(n int) (int, bool) {
	start := sc.pos
	v, ok := sc.number(n)
	return v, ok && sc.pos-start == n
}

func (sc *dateScanner) skipSpaces() {
	for !sc.eof() && sc.s[sc.pos] == ' ' {
		sc.pos++
	}
}

// monthByName matches a three-letter month abbreviation.
func (sc *dateScanner) monthByName() (int, bool) {
	if sc.pos+3 > len(sc.s) {
		return 0, false
	}
	for i, name := range monthNames {
		if sc.s[sc.pos:sc.pos+3] == name {
			sc.pos += 3
			return i, true
		}
	}
	return 0, false
}

func (sc *dateScanner) skipWeekDay() bool {
	for _, name := range weekdayNames {
		if strings.HasPrefix(sc.s[sc.pos:], name) {
			sc.pos += 3
			return true
		}
	}
	return false
}

// parseISO handles YYYY-MM-DD[THH:MM[:SS[.sss]][Z|+HH:MM]] and the
// extended form with a signed six-digit year. A date-time without a zone
// designator is local time.
func parseISO(s string) (float64, bool) {
	sc := &dateScanner{s: s}

	var year int64
	negative := false

	switch sc.peek() {
	case '+', '-':
		negative = sc.s[sc.pos] == '-'
		sc.pos++
		y, ok := sc.exactly(6)
		if !ok {
			return 0, false
		}
		year = int64(y)
		if negative {
			year = -year
		}
	default:
		y, ok := sc.exactly(4)
		if !ok {
			return 0, false
		}
		year = int64(y)
	}

	month, day := 1, 1
	if sc.accept('-') {
		m, ok := sc.exactly(2)
		if !ok || m < 1 || m > 12 {
			return 0, false
		}
		month = m
		if sc.accept('-') {
			d, ok := sc.exactly(2)
			if !ok || d < 1 || d > 31 {
				return 0, false
			}
			day = d
		}
	}

	var hour, min, sec, msec int
	local := false
	offset := 0 // minutes east of UTC

	if sc.accept('T') {
		h, ok := sc.exactly(2)
		if !ok || h > 24 {
			return 0, false
		}
		if !sc.accept(':') {
			return 0, false
		}
		m, ok := sc.exactly(2)
		if !ok || m > 59 {
			return 0, false
		}
		hour, min = h, m

		if sc.accept(':') {
			v, ok := sc.exactly(2)
			if !ok || v > 59 {
				return 0, false
			}
			sec = v
			if sc.accept('.') {
				start := sc.pos
				v, ok := sc.number(3)
				if !ok {
					return 0, false
				}
				// 1..3 digits pad to milliseconds.
				for n := sc.pos - start; n < 3; n++ {
					v *= 10
				}
				msec = v
			}
		}

		switch {
		case sc.accept('Z'):
		case sc.peek() == '+' || sc.peek() == '-':
			east := sc.s[sc.pos] == '+'
			sc.pos++
			oh, ok := sc.exactly(2)
			if !ok || !sc.accept(':') {
				return 0, false
			}
			om, ok := sc.exactly(2)
			if !ok || om > 59 {
				return 0, false
			}
			offset = oh*60 + om
			if !east {
				offset = -offset
			}
		default:
			local = true
		}
	}

	if !sc.eof() {
		return 0, false
	}

	if local {
		return localCompose(float64(year), float64(month-1), float64(day),
			float64(hour), float64(min), float64(sec), float64(msec)), true
	}

	days := daysFromCivil(year, month, day)
	t := float64(days)*86400000 + makeTime(float64(hour), float64(min), float64(sec), float64(msec))
	t -= float64(offset) * 60000
	return t, true
}

// parseRFC2822 handles "[Wkd, ]DD Mon YYYY HH:MM:SS (GMT|UTC|+HHMM)".
func parseRFC2822(s string) (float64, bool) {
	sc := &dateScanner{s: s}

	if sc.skipWeekDay() {
		if !sc.accept(',') {
			return 0, false
		}
		sc.skipSpaces()
	}

	day, ok := sc.number(2)
	if !ok || day < 1 || day > 31 {
		return 0, false
	}
	sc.skipSpaces()

	month, ok := sc.monthByName()
	if !ok {
		return 0, false
	}
	sc.skipSpaces()

	year, ok := sc.exactly(4)
	if !ok {
		return 0, false
	}
	sc.skipSpaces()

	hour, min, sec, ok := scanHMS(sc)
	if !ok {
		return 0, false
	}
	sc.skipSpaces()

	offset, ok := scanZone(sc)
	if !ok || !sc.eof() {
		return 0, false
	}

	days := daysFromCivil(int64(year), month+1, day)
	t := float64(days)*86400000 + makeTime(float64(hour), float64(min), float64(sec), 0)
	return t - float64(offset)*60000, true
}

// parseJSDate handles "Wkd Mon DD YYYY HH:MM:SS GMT+HHMM", the
// Date.toString layout.
func parseJSDate(s string) (float64, bool) {
	sc := &dateScanner{s: s}

	if !sc.skipWeekDay() || !sc.accept(' ') {
		return 0, false
	}

	month, ok := sc.monthByName()
	if !ok || !sc.accept(' ') {
		return 0, false
	}

	day, ok := sc.exactly(2)
	if !ok || day < 1 || day > 31 || !sc.accept(' ') {
		return 0, false
	}

	year, ok := sc.exactly(4)
	if !ok || !sc.accept(' ') {
		return 0, false
	}

	hour, min, sec, ok := scanHMS(sc)
	if !ok || !sc.accept(' ') {
		return 0, false
	}

	offset, ok := scanZone(sc)
	if !ok {
		return 0, false
	}
	// A trailing zone name like " (UTC)" is ignored.
	if !sc.eof() && sc.peek() != ' ' && sc.peek() != '(' {
		return 0, false
	}

	days := daysFromCivil(int64(year), month+1, day)
	t := float64(days)*86400000 + makeTime(float64(hour), float64(min), float64(sec), 0)
	return t - float64(offset)*60000, true
}

func scanHMS(sc *dateScanner) (int, int, int, bool) {
	h, ok := sc.exactly(2)
	if !ok || h > 23 || !sc.accept(':') {
		return 0, 0, 0, false
	}
	m, ok := sc.exactly(2)
	if !ok || m > 59 || !sc.accept(':') {
		return 0, 0, 0, false
	}
	s, ok := sc.exactly(2)
	if !ok || s > 59 {
		return 0, 0, 0, false
	}
	return h, m, s, true
}

// scanZone accepts GMT, UTC (zero offset) or +HHMM, returning minutes east.
func scanZone(sc *dateScanner) (int, bool) {
	rest := sc.s[sc.pos:]
	named := false
	if strings.HasPrefix(rest, "GMT") || strings.HasPrefix(rest, "UTC") {
		sc.pos += 3
		named = true
		if sc.eof() {
			return 0, true
		}
	}
	switch sc.peek() {
	case '+', '-':
		east := sc.s[sc.pos] == '+'
		sc.pos++
		v, ok := sc.exactly(4)
		if !ok {
			return 0, false
		}
		offset := (v/100)*60 + v%100
		if !east {
			offset = -offset
		}
		return offset, true
	}
	return 0, named
}

// --- Formatting ----------------------------------------------------------

// toISOString renders YYYY-MM-DDTHH:MM:SS.sssZ, switching to the extended
// signed six-digit year outside [0, 9999].
func (d *Date) toISOString() (string, bool) {
	f, ok := decompose(d.time, true)
	if !ok {
		return "", false
	}

	var year string
	if f.year < 0 || f.year > 9999 {
		year = fmt.Sprintf("%+07d", f.year)
	} else {
		year = fmt.Sprintf("%04d", f.year)
	}
	return fmt.Sprintf("%s-%02d-%02dT%02d:%02d:%02d.%03dZ",
		year, f.month+1, f.day, f.hour, f.min, f.sec, f.msec), true
}

// toUTCString renders "Wkd, DD Mon YYYY HH:MM:SS GMT".
func (d *Date) toUTCString() string {
	f, ok := decompose(d.time, true)
	if !ok {
		return "Invalid Date"
	}
	return fmt.Sprintf("%s, %02d %s %04d %02d:%02d:%02d GMT",
		weekdayNames[f.weekday], f.day, monthNames[f.month], f.year,
		f.hour, f.min, f.sec)
}

// toString renders the local "Wkd Mon DD YYYY HH:MM:SS GMT±HHMM (Zone)"
// layout.
func (d *Date) toString() string {
	if math.IsNaN(d.time) {
		return "Invalid Date"
	}
	lt := time.UnixMilli(int64(d.time)).In(time.Local)
	return lt.Format("Mon Jan 02 2006 15:04:05 GMT-0700 (MST)")
}

func (d *Date) toDateString() string {
	f, ok := decompose(d.time, false)
	if !ok {
		return "Invalid Date"
	}
	return fmt.Sprintf("%s %s %02d %04d",
		weekdayNames[f.weekday], monthNames[f.month], f.day, f.year)
}

func (d *Date) toTimeString() string {
	if math.IsNaN(d.time) {
		return "Invalid Date"
	}
	lt := time.UnixMilli(int64(d.time)).In(time.Local)
	return lt.Format("15:04:05 GMT-0700 (MST)")
}

// --- Prototype methods ---------------------------------------------------

func dateSelf(vm *VM, this Value) (*Date, error) {
	d := this.AsDate()
	if d == nil {
		return nil, vm.TypeError("this is not a Date object")
	}
	return d, nil
}

// getter builds a field accessor over decompose.
func dateGetter(utc bool, pick func(dateFields) float64) NativeFunc {
	return func(vm *VM, this Value, args []Value) (Value, error) {
		d, err := dateSelf(vm, this)
		if err != nil {
			return Undefined, err
		}
		f, ok := decompose(d.time, utc)
		if !ok {
			return Number(math.NaN()), nil
		}
		return Number(pick(f)), nil
	}
}

// dateSetter overwrites the fields starting at `from` (0=ms, 1=sec, 2=min,
// 3=hour, 4=day, 5=month, 6=year) with the call's arguments, then
// recomposes. A non-representable result turns the time into NaN.
func dateSetter(utc bool, from int, count int) NativeFunc {
	return func(vm *VM, this Value, args []Value) (Value, error) {
		d, err := dateSelf(vm, this)
		if err != nil {
			return Undefined, err
		}

		f, ok := decompose(d.time, utc)
		if !ok && from != 6 {
			// Only setFullYear revives an invalid date.
			d.time = math.NaN()
			return Number(d.time), nil
		}
		if !ok {
			f = dateFields{day: 1}
		}

		fields := []float64{
			float64(f.msec), float64(f.sec), float64(f.min), float64(f.hour),
			float64(f.day), float64(f.month), float64(f.year),
		}

		// Arguments apply from the most significant named field downward:
		// setHours(h, m, s, ms) overwrites hour, then minutes and on.
		for i := 0; i < count && i < len(args); i++ {
			n := args[i].ToNumber()
			if math.IsNaN(n) || math.IsInf(n, 0) {
				d.time = math.NaN()
				return Number(d.time), nil
			}
			fields[from-i] = math.Trunc(n)
		}

		if utc {
			days := makeDay(fields[6], fields[5], fields[4])
			ms := makeTime(fields[3], fields[2], fields[1], fields[0])
			d.time = timeClip(float64(days)*86400000 + ms)
		} else {
			d.time = timeClip(localCompose(fields[6], fields[5], fields[4],
				fields[3], fields[2], fields[1], fields[0]))
		}
		return Number(d.time), nil
	}
}

// buildDateShared assembles the Date instance template.
func (vm *VM) buildDateShared() *lvlhsh.Hash {
	h := &lvlhsh.Hash{}

	method := func(name string, nargs int, fn NativeFunc) {
		sharedMethod(h, name, nargs, fn, vm.protoFunction)
	}

	timeValue := func(vm *VM, this Value, args []Value) (Value, error) {
		d, err := dateSelf(vm, this)
		if err != nil {
			return Undefined, err
		}
		return Number(d.time), nil
	}
	method("getTime", 0, timeValue)
	method("valueOf", 0, timeValue)

	method("setTime", 1, func(vm *VM, this Value, args []Value) (Value, error) {
		d, err := dateSelf(vm, this)
		if err != nil {
			return Undefined, err
		}
		t := math.NaN()
		if len(args) > 0 {
			t = args[0].ToNumber()
		}
		d.SetTime(t)
		return Number(d.time), nil
	})

	for _, utc := range []bool{false, true} {
		prefix := "get"
		setPrefix := "set"
		if utc {
			prefix = "getUTC"
			setPrefix = "setUTC"
		}
		u := utc

		method(prefix+"FullYear", 0, dateGetter(u, func(f dateFields) float64 { return float64(f.year) }))
		method(prefix+"Month", 0, dateGetter(u, func(f dateFields) float64 { return float64(f.month) }))
		method(prefix+"Date", 0, dateGetter(u, func(f dateFields) float64 { return float64(f.day) }))
		method(prefix+"Day", 0, dateGetter(u, func(f dateFields) float64 { return float64(f.weekday) }))
		method(prefix+"Hours", 0, dateGetter(u, func(f dateFields) float64 { return float64(f.hour) }))
		method(prefix+"Minutes", 0, dateGetter(u, func(f dateFields) float64 { return float64(f.min) }))
		method(prefix+"Seconds", 0, dateGetter(u, func(f dateFields) float64 { return float64(f.sec) }))
		method(prefix+"Milliseconds", 0, dateGetter(u, func(f dateFields) float64 { return float64(f.msec) }))

		method(setPrefix+"Milliseconds", 1, dateSetter(u, 0, 1))
		method(setPrefix+"Seconds", 2, dateSetter(u, 1, 2))
		method(setPrefix+"Minutes", 3, dateSetter(u, 2, 3))
		method(setPrefix+"Hours", 4, dateSetter(u, 3, 4))
		method(setPrefix+"Date", 1, dateSetter(u, 4, 1))
		method(setPrefix+"Month", 2, dateSetter(u, 5, 2))
		method(setPrefix+"FullYear", 3, dateSetter(u, 6, 3))
	}

	method("getTimezoneOffset", 0, func(vm *VM, this Value, args []Value) (Value, error) {
		d, err := dateSelf(vm, this)
		if err != nil {
			return Undefined, err
		}
		if math.IsNaN(d.time) {
			return Number(math.NaN()), nil
		}
		_, secs := time.UnixMilli(int64(d.time)).In(time.Local).Zone()
		return Number(float64(-secs / 60)), nil
	})

	method("toISOString", 0, func(vm *VM, this Value, args []Value) (Value, error) {
		d, err := dateSelf(vm, this)
		if err != nil {
			return Undefined, err
		}
		s, ok := d.toISOString()
		if !ok {
			return Undefined, vm.RangeError("Invalid time value")
		}
		return String(s), nil
	})

	method("toJSON", 1, func(vm *VM, this Value, args []Value) (Value, error) {
		if !this.IsObjectLike() {
			return Undefined, vm.TypeError("this is not an object")
		}
		// Through the property protocol: a replaced toISOString wins.
		toISO, err := vm.Property(this, String("toISOString"))
		if err != nil {
			return Undefined, err
		}
		if !toISO.IsFunction() {
			return Undefined, vm.TypeError("toISOString is not a function")
		}
		if d := this.AsDate(); d != nil && math.IsNaN(d.time) {
			return Null, nil
		}
		return vm.Call(toISO, this)
	})

	method("toUTCString", 0, func(vm *VM, this Value, args []Value) (Value, error) {
		d, err := dateSelf(vm, this)
		if err != nil {
			return Undefined, err
		}
		return String(d.toUTCString()), nil
	})

	method("toString", 0, func(vm *VM, this Value, args []Value) (Value, error) {
		d, err := dateSelf(vm, this)
		if err != nil {
			return Undefined, err
		}
		return String(d.toString()), nil
	})

	method("toDateString", 0, func(vm *VM, this Value, args []Value) (Value, error) {
		d, err := dateSelf(vm, this)
		if err != nil {
			return Undefined, err
		}
		return String(d.toDateString()), nil
	})

	method("toTimeString", 0, func(vm *VM, this Value, args []Value) (Value, error) {
		d, err := dateSelf(vm, this)
		if err != nil {
			return Undefined, err
		}
		return String(d.toTimeString()), nil
	})

	return h
}

// installDateGlobal exposes the Date surface: calling Date() yields the
// current time string, and the constructor statics hang off it.
func (vm *VM) installDateGlobal() {
	dateFn := vm.NewNativeFunction("Date", 7, func(vm *VM, this Value, args []Value) (Value, error) {
		d := vm.NewDate()
		return String(d.AsDate().toString()), nil
	})

	now := vm.NewNativeFunction("now", 0, func(vm *VM, this Value, args []Value) (Value, error) {
		return Number(float64(time.Now().UnixMilli())), nil
	})
	parse := vm.NewNativeFunction("parse", 1, func(vm *VM, this Value, args []Value) (Value, error) {
		if len(args) == 0 {
			return Number(math.NaN()), nil
		}
		return Number(DateParse(args[0].ToPrimitiveString())), nil
	})
	utc := vm.NewNativeFunction("UTC", 7, func(vm *VM, this Value, args []Value) (Value, error) {
		if len(args) == 0 {
			return Number(math.NaN()), nil
		}
		return Number(makeDateFromArgs(args, true)), nil
	})

	_ = vm.PropertySet(dateFn, String("now"), now)
	_ = vm.PropertySet(dateFn, String("parse"), parse)
	_ = vm.PropertySet(dateFn, String("UTC"), utc)
	_ = vm.PropertySet(vm.global, String("Date"), dateFn)
}
