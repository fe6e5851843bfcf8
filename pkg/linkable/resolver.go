package linkable

import (
	"context"
	"slices"
)

// Instruction replaces Dst with a hardlink to the inode of Src.
type Instruction struct {
	Src    PathRecord `json:"src"`
	Dst    PathRecord `json:"dst"`
	SrcIno uint64     `json:"src_ino"`
	DstIno uint64     `json:"dst_ino"`
	Dev    uint64     `json:"dev"`
}

// applyFunc carries out an instruction. The catalog is only updated when it returns nil.
type applyFunc func(d *fsDev, ins Instruction) error

// resolve turns every set of equal inodes into link instructions, never letting an inode exceed
// the device ceiling. Devices are visited by ascending id and sets by their smallest inode.
func (l *Linkable) resolve(ctx context.Context, apply applyFunc) error {
	devs := make([]uint64, 0, len(l.devs))
	for dev := range l.devs {
		devs = append(devs, dev)
	}
	slices.Sort(devs)

	for _, dev := range devs {
		d := l.devs[dev]
		for _, component := range d.equal.Components() {
			if err := l.resolveComponent(ctx, d, component, apply); err != nil {
				return err
			}
		}
	}

	return nil
}

func (l *Linkable) resolveComponent(ctx context.Context, d *fsDev, component []uint64, apply applyFunc) error {
	queue := slices.Clone(component)

	for len(queue) > 1 {
		// most linked first, so the fewest paths have to move
		slices.SortStableFunc(queue, func(a, b uint64) int {
			na, nb := d.nlink(a), d.nlink(b)
			switch {
			case na > nb:
				return -1
			case na < nb:
				return 1
			case a < b:
				return -1
			case a > b:
				return 1
			}
			return 0
		})

		src := queue[0]
		queue = queue[1:]

		var leftovers []uint64
		for len(queue) > 0 {
			dst := queue[len(queue)-1]
			queue = queue[:len(queue)-1]

			if d.bounded() && d.nlink(src)+d.nlink(dst) > d.maxLinks {
				// src is full, the next pass picks a new source
				queue = append(queue, dst)
				break
			}

			for _, rec := range d.sortedPaths(dst) {
				name := ""
				if l.opts.SameName {
					if !d.hasName(src, rec.Name) {
						continue
					}
					name = rec.Name
				}

				srcRec, ok := d.firstPath(src, name)
				if !ok {
					continue
				}

				if err := ctx.Err(); err != nil {
					return err
				}

				ins := Instruction{
					Src:    srcRec,
					Dst:    rec,
					SrcIno: src,
					DstIno: dst,
					Dev:    d.dev,
				}

				if err := apply(d, ins); err != nil {
					return err
				}

				l.commit(d, ins)
			}

			if d.seen(dst) && d.pathCount(dst) > 0 {
				leftovers = append(leftovers, dst)
			}
		}

		queue = append(queue, leftovers...)
	}

	return nil
}

// commit applies the effect of a performed (or simulated) instruction to the catalog.
func (l *Linkable) commit(d *fsDev, ins Instruction) {
	src := d.inoStat[ins.SrcIno]
	dst := d.inoStat[ins.DstIno]

	l.results.didHardlink(ins, dst.Size, dst.Nlink, l.opts.Verbosity)

	d.setNlink(ins.SrcIno, src.Nlink+1)
	d.setNlink(ins.DstIno, dst.Nlink-1)
	d.movePath(ins.Dst, ins.DstIno, ins.SrcIno)
}
