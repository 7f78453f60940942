package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/playshare/internal/modal"
	"github.com/desertthunder/playshare/internal/models"
	"github.com/desertthunder/playshare/internal/paging"
	"github.com/desertthunder/playshare/internal/services"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgNearBottom MsgKind = iota
	MsgPageFetched
	MsgProfileLoaded
	MsgFormSubmitted
	MsgActionDone
	MsgNoticeExpired
)

type pageFetched struct {
	view   ViewState
	result paging.Result[models.Playlist]
}

type profileLoaded struct {
	profile *models.Profile
	err     error
}

type formSubmitted struct {
	name    modal.Name
	creds   *services.Credentials
	profile *models.Profile
	err     error
}

type actionDone struct {
	notice string
	err    error
}

// nearBottomMsg is the constructor for [MsgNearBottom]
func nearBottomMsg(view ViewState) Msg {
	return Msg{kind: MsgNearBottom, data: view}
}

// pageFetchedMsg is the constructor for [MsgPageFetched]
func pageFetchedMsg(view ViewState, r paging.Result[models.Playlist]) Msg {
	return Msg{kind: MsgPageFetched, data: pageFetched{view, r}}
}

// profileLoadedMsg is the constructor for [MsgProfileLoaded]
func profileLoadedMsg(p *models.Profile, err error) Msg {
	return Msg{kind: MsgProfileLoaded, data: profileLoaded{p, err}}
}

// formSubmittedMsg is the constructor for [MsgFormSubmitted]
func formSubmittedMsg(name modal.Name, creds *services.Credentials, p *models.Profile, err error) Msg {
	return Msg{kind: MsgFormSubmitted, data: formSubmitted{name, creds, p, err}}
}

// actionDoneMsg is the constructor for [MsgActionDone]
func actionDoneMsg(notice string, err error) Msg {
	return Msg{kind: MsgActionDone, data: actionDone{notice, err}}
}

// noticeExpiredMsg is the constructor for [MsgNoticeExpired]. The id ties it to the notice it clears.
func noticeExpiredMsg(id int) Msg {
	return Msg{kind: MsgNoticeExpired, data: id}
}
