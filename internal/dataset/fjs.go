package dataset

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseFJS читает формат Brandimarte:
//
//	<работ> <станков> [<среднее число станков на операцию>]
//	<операций> { <k> { <станок> <время> }*k }*операций
//
// Станки нумеруются с 1. Операции работы строго последовательны,
// переналадки нулевые.
func ParseFJS(r io.Reader) (*File, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var lines [][]int
	lineNo := 0
	for sc.Scan() {
		lineNo++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		nums := make([]int, 0, len(fields))
		for i, s := range fields {
			// третье поле заголовка дробное, оно не используется
			if len(lines) == 0 && i == 2 {
				break
			}
			v, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("fjs line %d: %q is not an integer", lineNo, s)
			}
			nums = append(nums, v)
		}
		lines = append(lines, nums)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 || len(lines[0]) < 2 {
		return nil, fmt.Errorf("fjs: missing header")
	}

	jobs, machines := lines[0][0], lines[0][1]
	if jobs <= 0 || machines <= 0 {
		return nil, fmt.Errorf("fjs: bad header %d jobs, %d machines", jobs, machines)
	}
	if len(lines)-1 < jobs {
		return nil, fmt.Errorf("fjs: %d job lines for %d jobs", len(lines)-1, jobs)
	}

	f := &File{Jobs: jobs, Machines: machines}
	for j := 0; j < jobs; j++ {
		row := lines[j+1]
		p := 0
		next := func() (int, error) {
			if p >= len(row) {
				return 0, fmt.Errorf("fjs job %d: line ends early", j)
			}
			p++
			return row[p-1], nil
		}
		ops, err := next()
		if err != nil {
			return nil, err
		}
		for o := 0; o < ops; o++ {
			k, err := next()
			if err != nil {
				return nil, err
			}
			times := make([]int, machines)
			for m := range times {
				times[m] = -1
			}
			for ; k > 0; k-- {
				m, err := next()
				if err != nil {
					return nil, err
				}
				t, err := next()
				if err != nil {
					return nil, err
				}
				if m < 1 || m > machines {
					return nil, fmt.Errorf("fjs job %d op %d: machine %d out of [1,%d]", j, o, m, machines)
				}
				times[m-1] = t
			}
			f.Tasks = append(f.Tasks, TaskRow{Job: j, Task: o, Sequence: o, Times: times})
		}
		if p != len(row) {
			return nil, fmt.Errorf("fjs job %d: %d trailing values", j, len(row)-p)
		}
	}
	return f, nil
}

// WriteFJS пишет экземпляр в формате Brandimarte. Переналадки и группы
// с равным Sequence в этом формате не выражаются.
func WriteFJS(w io.Writer, f *File) error {
	if len(f.Setup) > 0 {
		return fmt.Errorf("fjs: setup times are not representable")
	}
	byJob := make([][]TaskRow, f.Jobs)
	flex := 0
	for _, t := range f.Tasks {
		if t.Job < 0 || t.Job >= f.Jobs {
			return fmt.Errorf("fjs: task job %d out of range", t.Job)
		}
		if n := len(byJob[t.Job]); n > 0 && byJob[t.Job][n-1].Sequence >= t.Sequence {
			return fmt.Errorf("fjs: job %d tasks are not strictly sequential", t.Job)
		}
		byJob[t.Job] = append(byJob[t.Job], t)
		for _, v := range t.Times {
			if v >= 0 {
				flex++
			}
		}
	}

	bw := bufio.NewWriter(w)
	avg := 0.0
	if len(f.Tasks) > 0 {
		avg = float64(flex) / float64(len(f.Tasks))
	}
	fmt.Fprintf(bw, "%d %d %s\n", f.Jobs, f.Machines, strconv.FormatFloat(avg, 'f', -1, 64))
	for _, ts := range byJob {
		fmt.Fprintf(bw, "%d", len(ts))
		for _, t := range ts {
			var pairs []string
			for m, v := range t.Times {
				if v >= 0 {
					pairs = append(pairs, strconv.Itoa(m+1), strconv.Itoa(v))
				}
			}
			fmt.Fprintf(bw, " %d %s", len(pairs)/2, strings.Join(pairs, " "))
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}
