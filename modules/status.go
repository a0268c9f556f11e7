package modules

import (
	"fmt"
	"os"
	"runtime"
	"time"

	tg "github.com/amarnathcjd/gogram/telegram"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

var startTime = time.Now()

func PingHandle(m *tg.NewMessage) error {
	start := time.Now()
	msg, err := m.Reply("Pinging...")
	if err != nil {
		return err
	}
	_, err = msg.Edit(fmt.Sprintf("🏓 Pong! <code>%s</code>", time.Since(start).Round(time.Millisecond)))
	return err
}

func humanBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// SysHandle reports host and process health.
func SysHandle(m *tg.NewMessage) error {
	info := "<b>💻 System Info:</b>\n\n"

	if percs, err := cpu.Percent(0, false); err == nil && len(percs) > 0 {
		info += fmt.Sprintf("🖥️ <b>CPU:</b> %.2f%%\n", percs[0])
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info += fmt.Sprintf("💾 <b>Memory:</b> %s / %s (%.2f%%)\n",
			humanBytes(vm.Used), humanBytes(vm.Total), vm.UsedPercent)
	}
	if du, err := disk.Usage("/"); err == nil {
		info += fmt.Sprintf("💽 <b>Disk:</b> %s / %s (%.2f%%)\n",
			humanBytes(du.Used), humanBytes(du.Total), du.UsedPercent)
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := proc.MemoryInfo(); err == nil {
			info += fmt.Sprintf("📊 <b>Process Mem:</b> %s\n", humanBytes(mi.RSS))
		}
	}
	info += fmt.Sprintf("⏱️ <b>Uptime:</b> %s\n", time.Since(startTime).Round(time.Second))
	info += fmt.Sprintf("🧑‍💻 <b>OS:</b> %s | <b>Arch:</b> %s\n", runtime.GOOS, runtime.GOARCH)
	info += fmt.Sprintf("🚀 <b>CPUs:</b> %d | <b>Goroutines:</b> %d\n", runtime.NumCPU(), runtime.NumGoroutine())
	info += fmt.Sprintf("🆔 <b>PID:</b> %d", os.Getpid())

	m.Reply(info)
	return nil
}

func init() {
	Mods.AddModule("Status", `<b>Status Module</b>

<b>Commands:</b>
 - /ping - Bot response latency
 - /sys - Host and process stats`)
}
