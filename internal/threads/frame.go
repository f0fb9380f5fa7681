package threads

import "aprsballoon/internal/ax25"

// aprsDest is the conventional AX.25 destination address APRS software
// addresses itself to; it carries no routing meaning for this tracker.
const aprsDest = "APRS"

// buildPath assembles the AX.25 path for an outgoing frame: our call as
// source, the conventional APRS destination, and a digi path parsed from
// the configured alias strings (e.g. "WIDE1-1").
func buildPath(ourCall ax25.Callsign, aliases []string) (ax25.Path, error) {
	dest, err := ax25.ParseCallsign(aprsDest)
	if err != nil {
		return ax25.Path{}, err
	}
	digis := make([]ax25.Callsign, 0, len(aliases))
	for _, a := range aliases {
		c, err := ax25.ParseCallsign(a)
		if err != nil {
			return ax25.Path{}, err
		}
		digis = append(digis, c)
	}
	return ax25.Path{Dest: dest, Src: ourCall, Digis: digis}, nil
}

// replyPath addresses a frame back to the station we just heard from (e.g.
// a message ACK): dest is the original sender, src is us, no digi path.
func replyPath(ourCall, to ax25.Callsign) ax25.Path {
	return ax25.Path{Dest: to, Src: ourCall}
}

// buildFrameBody encodes path+info into the AX.25 frame body a
// radio.RadioTask carries (FCS is appended later by the Radio Manager).
func buildFrameBody(path ax25.Path, info string) ([]byte, error) {
	f := ax25.Frame{Path: path, Info: []byte(info)}
	return f.Encode()
}
