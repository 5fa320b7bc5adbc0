/*
Copyright (C) 2023  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package sgd

// blockBounds returns the [start, end) point range for block
// blockIdx, given a uniform blockSize; the last block of totalBlocks
// absorbs the remainder up to n.
func blockBounds(blockIdx, blockSize, totalBlocks, n int) (start, end int) {
	start = blockIdx * blockSize
	if blockIdx == totalBlocks-1 {
		end = n
	} else {
		end = start + blockSize
	}
	return
}

// validRange implements the spec's documented (and deliberately
// preserved) floor-division validation slicing: valid_block_size =
// valid_size/threads for every worker but the last, which absorbs the
// remainder (up to threads-1 extra points), so every validation point
// is counted exactly once. Kept bit-for-bit for score reproducibility
// per spec's open question (DESIGN.md).
func validRange(workerID, threads, validN int) (start, end int) {
	blockSize := validN / threads
	start = workerID * blockSize
	if workerID == threads-1 {
		end = validN
	} else {
		end = start + blockSize
	}
	return
}
