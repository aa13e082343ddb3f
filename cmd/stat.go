package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const (
	BLACK = 30 + iota
	RED
	GREEN
	YELLOW
	BLUE
	MAGENTA
	CYAN
	WHITE
	DEFAULT = "00"
)

const (
	RESET_SEQ      = "\033[0m"
	COLOR_SEQ      = "\033[1;" // %dm
	COLOR_DARK_SEQ = "\033[0;" // %dm
	UNDERLINE_SEQ  = "\033[4m"
	// BOLD_SEQ       = "\033[1m"
)

type statsWatcher struct {
	colorful bool
	interval uint
	header   string
	sections []*section
}

func (w *statsWatcher) colorize(msg string, color int, dark bool, underline bool) string {
	if !w.colorful || msg == "" || msg == " " {
		return msg
	}
	var cseq, useq string
	if dark {
		cseq = COLOR_DARK_SEQ
	} else {
		cseq = COLOR_SEQ
	}
	if underline {
		useq = UNDERLINE_SEQ
	}
	return fmt.Sprintf("%s%s%dm%s%s", useq, cseq, color, msg, RESET_SEQ)
}

const (
	metricByte = 1 << iota
	metricCount
	metricTime
	metricCPU
	metricGauge
	metricCounter
	metricHist
)

// cellWidth is the width of every value column; item nicks must fit in it.
const cellWidth = 9

type item struct {
	nick string
	name string
	typ  uint8
}

type section struct {
	name  string
	items []*item
}

func (w *statsWatcher) buildSchema(schema string) {
	for _, r := range schema {
		var s section
		switch r {
		case 'u':
			s.name = "process"
			s.items = append(s.items, &item{"cpu", "dynfile_process_cpu_seconds_total", metricCPU | metricCounter})
			s.items = append(s.items, &item{"mem", "dynfile_process_resident_memory_bytes", metricByte | metricGauge})
		case 'w':
			s.name = "writes"
			s.items = append(s.items, &item{"append", "dynfile_engine_ops_durations_histogram_seconds_append", metricTime | metricHist})
			s.items = append(s.items, &item{"overwrite", "dynfile_engine_ops_durations_histogram_seconds_overwrite", metricTime | metricHist})
			s.items = append(s.items, &item{"delete", "dynfile_engine_ops_durations_histogram_seconds_delete", metricTime | metricHist})
			// 带宽
			s.items = append(s.items, &item{"write", "dynfile_engine_written_size_bytes_sum", metricByte | metricCounter})
		case 'q':
			s.name = "queue"
			s.items = append(s.items, &item{"queued", "dynfile_engine_queue_depth", metricCount | metricGauge})
			s.items = append(s.items, &item{"errors", "dynfile_engine_requests_total_error", metricCount | metricCounter})
			s.items = append(s.items, &item{"faults", "dynfile_engine_requests_total_fault", metricCount | metricCounter})
			s.items = append(s.items, &item{"abandon", "dynfile_engine_abandoned_requests_total", metricCount | metricCounter})
			s.items = append(s.items, &item{"reopen", "dynfile_engine_stream_opens_total", metricCount | metricCounter})
		case 'g':
			s.name = "go"
			s.items = append(s.items, &item{"alloc", "dynfile_go_memstats_alloc_bytes", metricByte | metricGauge})
			s.items = append(s.items, &item{"sys", "dynfile_go_memstats_sys_bytes", metricByte | metricGauge})
		default:
			fmt.Printf("Warning: no item defined for %c\n", r)
			continue
		}
		w.sections = append(w.sections, &s)
	}
	if len(w.sections) == 0 {
		log.Fatalln("no section to watch, please check the schema string")
	}
}

func padding(name string, width int, char byte) string {
	pad := width - len(name)
	if pad < 0 {
		pad = 0
		name = name[0:width]
	}
	prefix := (pad + 1) / 2
	buf := make([]byte, width)
	for i := 0; i < prefix; i++ {
		buf[i] = char
	}
	copy(buf[prefix:], name)
	for i := prefix + len(name); i < width; i++ {
		buf[i] = char
	}
	return string(buf)
}

func (w *statsWatcher) formatHeader() {
	headers := make([]string, len(w.sections))
	subHeaders := make([]string, len(w.sections))
	for i, s := range w.sections {
		subs := make([]string, 0, len(s.items))
		for _, it := range s.items {
			subs = append(subs, w.colorize(padding(it.nick, cellWidth, ' '), BLUE, false, true))

			if it.typ&metricHist != 0 {
				if it.typ&metricTime != 0 {
					subs = append(subs, w.colorize("  lat_ms ", BLUE, false, true))
				} else {
					subs = append(subs, w.colorize("    avg  ", BLUE, false, true))
				}
			}
		}
		width := (cellWidth+1)*len(subs) - 1 // cell + separating space
		subHeaders[i] = strings.Join(subs, " ")
		headers[i] = w.colorize(padding(s.name, width, '-'), BLUE, false, false)
	}

	blueLine := w.colorize("|", BLUE, false, false)
	w.header = fmt.Sprintf("%s\n%s", strings.Join(headers, blueLine),
		strings.Join(subHeaders, blueLine))
}

func (w *statsWatcher) formatU64(v float64, dark, isByte bool) string {
	if v <= 0.0 {
		return w.colorize("       0 ", BLACK, false, false)
	}
	var vi uint64
	var unit string
	var color int
	switch vi = uint64(v); {
	case vi < 10000:
		if isByte {
			unit = "B"
		} else {
			unit = " "
		}
		color = RED
	case vi>>10 < 10000:
		vi, unit, color = vi>>10, "K", YELLOW
	case vi>>20 < 10000:
		vi, unit, color = vi>>20, "M", GREEN
	case vi>>30 < 10000:
		vi, unit, color = vi>>30, "G", BLUE
	case vi>>40 < 10000:
		vi, unit, color = vi>>40, "T", MAGENTA
	default:
		vi, unit, color = vi>>50, "P", CYAN
	}
	return w.colorize(fmt.Sprintf("%8d", vi), color, dark, false) +
		w.colorize(unit, BLACK, false, false)
}

func (w *statsWatcher) formatTime(v float64, dark bool) string {
	var ret string
	var color int
	switch {
	case v <= 0.0:
		ret, color, dark = "       0 ", BLACK, false
	case v < 10.0:
		ret, color = fmt.Sprintf("%8.2f ", v), GREEN
	case v < 100.0:
		ret, color = fmt.Sprintf("%8.1f ", v), YELLOW
	case v < 10000.0:
		ret, color = fmt.Sprintf("%8.f ", v), RED
	default:
		ret, color = fmt.Sprintf("%8.e", v), MAGENTA
	}
	return w.colorize(ret, color, dark, false)
}

func (w *statsWatcher) formatCPU(v float64, dark bool) string {
	var ret string
	var color int
	switch v = v * 100.0; {
	case v <= 0.0:
		ret, color = "     0.0", WHITE
	case v < 30.0:
		ret, color = fmt.Sprintf("%8.1f", v), GREEN
	case v < 100.0:
		ret, color = fmt.Sprintf("%8.1f", v), YELLOW
	default:
		ret, color = fmt.Sprintf("%8.f", v), RED
	}
	return w.colorize(ret, color, dark, false) +
		w.colorize("%", BLACK, false, false)
}

func (w *statsWatcher) printDiff(left, right map[string]float64, dark bool) {
	if !w.colorful && dark {
		return
	}
	values := make([]string, len(w.sections))
	for i, s := range w.sections {
		vals := make([]string, 0, len(s.items))
		for _, it := range s.items {
			switch it.typ & 0xF0 {
			case metricGauge:
				vals = append(vals, w.formatU64(right[it.name], dark, it.typ&metricByte != 0))
			case metricCounter:
				v := (right[it.name] - left[it.name])
				if !dark {
					v /= float64(w.interval)
				}
				if it.typ&metricByte != 0 {
					vals = append(vals, w.formatU64(v, dark, true))
				} else if it.typ&metricCPU != 0 {
					vals = append(vals, w.formatCPU(v, dark))
				} else { // metricCount
					vals = append(vals, w.formatU64(v, dark, false))
				}
			case metricHist: // metricTime
				count := right[it.name+"_total"] - left[it.name+"_total"]
				var avg float64
				if count > 0.0 {
					cost := right[it.name+"_sum"] - left[it.name+"_sum"]
					if it.typ&metricTime != 0 {
						cost *= 1000 // s -> ms
					}
					avg = cost / count
				}
				if !dark {
					count /= float64(w.interval)
				}
				vals = append(vals, w.formatU64(count, dark, false), w.formatTime(avg, dark))
			}
		}
		values[i] = strings.Join(vals, " ")
	}
	if w.colorful && dark {
		fmt.Printf("%s\r", strings.Join(values, w.colorize("|", BLUE, false, false)))
	} else {
		fmt.Printf("%s\n", strings.Join(values, w.colorize("|", BLUE, false, false)))
	}
}

// flattenFamilies sums every series of a family into one value per name. Series
// carrying a mode or result label are also summed under name_<value>. Histograms
// contribute name_total (sample count) and name_sum.
func flattenFamilies(families map[string]*dto.MetricFamily) map[string]float64 {
	stats := make(map[string]float64)
	for name, mf := range families {
		for _, m := range mf.GetMetric() {
			keys := []string{name}
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "mode" || lp.GetName() == "result" {
					keys = append(keys, name+"_"+lp.GetValue())
				}
			}

			for _, k := range keys {
				switch mf.GetType() {
				case dto.MetricType_COUNTER:
					stats[k] += m.GetCounter().GetValue()
				case dto.MetricType_GAUGE:
					stats[k] += m.GetGauge().GetValue()
				case dto.MetricType_UNTYPED:
					stats[k] += m.GetUntyped().GetValue()
				case dto.MetricType_HISTOGRAM:
					h := m.GetHistogram()
					stats[k+"_total"] += float64(h.GetSampleCount())
					stats[k+"_sum"] += h.GetSampleSum()
				case dto.MetricType_SUMMARY:
					sm := m.GetSummary()
					stats[k+"_total"] += float64(sm.GetSampleCount())
					stats[k+"_sum"] += sm.GetSampleSum()
				}
			}
		}
	}
	return stats
}

func readStats(client *http.Client, url string) map[string]float64 {
	resp, err := client.Get(url)
	if err != nil {
		fmt.Printf("get %s: %s\n", url, err)
		os.Exit(0)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("get %s: %s\n", url, resp.Status)
		return nil
	}

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(resp.Body)
	if err != nil {
		log.Printf("parse %s: %s\n", url, err)
		return nil
	}
	return flattenFamilies(families)
}

func ShowStats(addr string, interval uint) error {
	if interval == 0 {
		interval = 1
	}
	url := "http://" + addr + "/metrics"
	client := &http.Client{Timeout: 5 * time.Second}

	watcher := &statsWatcher{
		colorful: SupportANSIColor(os.Stdout.Fd()),
		interval: interval,
	}
	watcher.buildSchema("uwqg")
	watcher.formatHeader()

	var tick uint
	var start, last, current map[string]float64
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	current = readStats(client, url)
	start = current
	last = current

	for {
		if tick%(watcher.interval*30) == 0 {
			fmt.Println(watcher.header)
		}
		if tick%watcher.interval == 0 {
			watcher.printDiff(start, current, false)
			start = current
		} else {
			watcher.printDiff(last, current, true)
		}
		last = current
		tick++
		<-ticker.C
		current = readStats(client, url)
	}
}

func SupportANSIColor(fd uintptr) bool {
	return isatty.IsTerminal(fd) && runtime.GOOS != "windows"
}
