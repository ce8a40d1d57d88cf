package main

import (
	"bytes"
	"log"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/wricardo/mcp-training/roaddodge/desktop/settings"
	"github.com/wricardo/mcp-training/roaddodge/desktop/sound"
	"github.com/wricardo/mcp-training/roaddodge/game/engine"
)

// audioSink plays engine audio cues. A nil context makes it silent.
type audioSink struct {
	ctx      *audio.Context
	settings *settings.Manager

	music       *audio.Player
	musicVolume float64
	// musicWanted is what the game asked for, independent of the M toggle
	musicWanted bool
}

func newAudioSink(ctx *audio.Context, prefs *settings.Manager) *audioSink {
	return &audioSink{ctx: ctx, settings: prefs}
}

// Handle plays cues in order
func (a *audioSink) Handle(cues []engine.AudioCue) {
	for _, cue := range cues {
		switch cue.Kind {
		case engine.AudioMusicPlay:
			a.playMusic(cue)
		case engine.AudioMusicStop:
			a.musicWanted = false
			if a.music != nil {
				a.music.Pause()
			}
		case engine.AudioSfx:
			a.playSfx(cue)
		}
	}
}

// playMusic restarts the loop from the beginning
func (a *audioSink) playMusic(cue engine.AudioCue) {
	a.musicWanted = true
	a.musicVolume = cue.Volume
	if a.ctx == nil {
		return
	}

	pcm, err := sound.Synthesize(cue.Preset)
	if err != nil {
		log.Printf("[Audio] %v", err)
		return
	}

	if a.music != nil {
		a.music.Close()
	}
	loop := audio.NewInfiniteLoop(bytes.NewReader(pcm), int64(len(pcm)))
	player, err := a.ctx.NewPlayer(loop)
	if err != nil {
		log.Printf("[Audio] music player: %v", err)
		a.music = nil
		return
	}
	a.music = player
	a.music.SetVolume(a.musicVolume * a.settings.Get().MusicVolume)
	if a.settings.Get().MusicEnabled {
		a.music.Play()
	}
}

func (a *audioSink) playSfx(cue engine.AudioCue) {
	if a.ctx == nil {
		return
	}
	pcm, err := sound.Synthesize(cue.Preset)
	if err != nil {
		log.Printf("[Audio] %v", err)
		return
	}
	player := a.ctx.NewPlayerFromBytes(pcm)
	player.SetVolume(cue.Volume * a.settings.Get().SfxVolume)
	player.Play()
}

// SetMusicEnabled resumes or pauses the current track for the M toggle
func (a *audioSink) SetMusicEnabled(on bool) {
	if a.music == nil {
		return
	}
	if on && a.musicWanted {
		a.music.Play()
		return
	}
	a.music.Pause()
}
